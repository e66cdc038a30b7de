// Package views adapts the cache and coordinator into the read-only slices
// each screen renders.
//
// An adapter subscribes on construction and calls its onChange func after
// any commit touching its kinds and whenever one of its operations starts or
// settles. Adapters never fetch; screens ask the coordinator to refresh and
// re-read the adapter when notified. Close detaches the adapter, after which
// onChange is never called.
package views
