// Package tesis contains the thesis aggregate and its lifecycle state
// machine. This is the core of the system: a thesis moves through the
// registration, review, jury evaluation, final report and defense stages
// exclusively through Maquina.Ejecutar, which enforces role authorization
// and structural preconditions per transition and emits one immutable
// history record per successful transition.
//
// Direct writes to Estado, Fase, RondaActual or the deadline fields from
// outside this package are a bug.
package tesis
