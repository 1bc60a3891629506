// Package harness provides conformance testing for compiled queries.
//
// A scenario holds one query document and the output each dialect is
// expected to produce. The harness compiles the query for every target
// dialect, checks the expectations, and optionally runs the SQLite output
// against a fixture database.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	query:                    # an inline query document (see querydoc)
//	  select: {columns: [id], from: users, where: {in: [1, 1, 2], x: id}}
//	query_file: q.yaml        # or a document path, relative to the scenario
//	config:                   # optional overrides, same keys as the config file
//	  quoting: smart
//	  passes: [dedup_in_list]
//	fixture:                  # optional SQLite setup statements
//	  - CREATE TABLE users (id INTEGER, name TEXT)
//	  - INSERT INTO users VALUES (1, 'ann'), (2, 'bob')
//	equivalent: true          # optimized and unoptimized SQLite results match
//	expect:
//	  postgres:
//	    sql: SELECT id FROM users WHERE id IN (1, 2)
//	    params: []
//	    applied: [dedup_in_list]
//	  mysql:
//	    error: E201           # error code or message fragment
//	  sqlite:
//	    rows: [["1"], ["2"]]
//
// # Deterministic Testing
//
// Every compilation uses a fixed compile ID and a discarded logger, and
// every fixture run gets a fresh in-memory database, so identical scenarios
// always produce identical results and golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/in_to_exists.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
