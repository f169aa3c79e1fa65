// Package registry stores program records and executes them against the
// language-model backend. Two executable families live here: predict
// programs, which run through a compiled signature (or the default
// question→answer signature when compilation fell back), and Gemini
// programs, which keep their definition raw and drive prompt construction
// from it directly. Pool workers additionally rebuild transient records
// from host-carried snapshots without touching the local store.
package registry
