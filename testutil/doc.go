// Package testutil provides testing utilities for imgcache.
//
// This package is intended for use in tests and benchmarks only.
//
// # Clock
//
//	clk := testutil.NewFakeClock(time.Time{})
//	clk.Advance(2 * time.Second)
//
// # Loader
//
//	loader := &testutil.CountingLoader{}
//	e, err := loader.Load(ctx, key)
//	loader.Calls() // 1
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.Keys(100)
//	img := rng.Image(4096)
//	hot := rng.Zipf(len(keys), 1.2) // skewed access pattern
package testutil
