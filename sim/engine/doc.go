// Package engine provides the stepwise movement and collision engine for
// the car simulator.
//
// The engine package implements:
//   - The closed Direction and Command enumerations and the 90 degree turn table
//   - A lenient command parser that keeps F, L and R and drops everything else
//   - Pluggable forward and turn movement strategies
//   - Cars holding a position, a facing and a fixed program
//   - A bounded Grid that advances all cars in lock-step and detects collisions
//   - A Simulation that runs the grid until the first collision
//
// Usage:
//
//	sim, err := engine.NewSimulation(10, 10, []engine.CarSpec{
//		{ID: "A", InitialState: "1 2 N", Commands: "FFRFFFFFRL"},
//		{ID: "B", InitialState: "7 8 W", Commands: "FFLFFFFFFF"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome := sim.Run()
//	fmt.Println(outcome) // "no collision"
//
// Step Semantics:
//
// Every step reads each car's next command in insertion order, computes the
// resulting state from the grid as it was when the step began, and commits
// all in-bounds moves together. A move that would leave the grid is dropped
// and the car stays put. Collision detection then groups cars by cell; the
// first shared cell, walking cars in insertion order, is reported.
package engine
