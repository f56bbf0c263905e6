// Package manage runs a fixed set of Django manage.py subcommands and reports
// whether a run changed anything.
//
// Ownership boundary:
// - subcommand catalog and per-subcommand parameter tables
// - parameter parsing and validation
// - virtualenv preparation as an explicit execution environment
// - command line construction
// - execution and output classification
//
// A run is linear: ValidateParams, prepare the environment, Build, execute, Classify.
// Nothing is retried and nothing is rolled back.
package manage
