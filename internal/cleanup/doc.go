// Package cleanup implements the retention engine for the document-upload
// scratch directories.
//
// A Manager owns one monitor loop. Every check interval it samples the
// managed categories, picks a mode (emergency, normal, idle or routine),
// asks the pure Decide function which files should go, hands the decisions
// to the Executor and publishes an immutable Status snapshot.
//
// Files registered through RegisterSessionFile are removed by the
// session teardown sweep, which a ShutdownHook runs exactly once when the
// process terminates.
//
// Modes and the reason they tag decisions with:
//
//	emergency         disk_pressure (plus age_expired)
//	normal            age_expired
//	idle              idle_sweep (plus age_expired)
//	routine           age_expired
//	session_teardown  session_teardown
//
// A file selected for several reasons is deleted once and reported with the
// strongest reason: session_teardown > disk_pressure > age_expired > idle_sweep.
package cleanup
