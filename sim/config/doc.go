// Package config provides process settings and the scenario library.
//
// Settings are layered: built-in defaults, then an optional JSON file
// (carsim.json), then CARSIM_* environment variables (a .env file is
// honoured), and finally command-line flags applied by the caller.
//
// Manager serves scenario files (*.txt in the scenario text format) from a
// directory, caching parsed scenarios behind a read-write lock:
//
//	mgr, err := config.NewManager("scenarios", settings.GridLimits())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	crossing, err := mgr.LoadScenario("crossing")
//	infos, err := mgr.ListScenarios()
//
// Every scenario is validated against the grid limits before it is cached
// or written.
package config
