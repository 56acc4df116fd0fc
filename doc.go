/*
Package hashfsm is an embedded finite-state-machine engine for the hash entities of a key-value store.

It layers transition semantics on top of plain hashes: an operator declares a named Definition (states, events, legal transitions) and binds it to a key prefix. Every hash whose key falls under that prefix becomes an instance of the machine, gains a state field that is stamped with the initial state on first write, and only advances through validated transitions.

# Concept

The store stays the owner of the data. hashfsm only needs field reads and writes, a slot for typed values and a feed of write notifications, all described in package ports. The in-memory adapter and the Redis adapter provide them; any other host can be plugged in the same way.

# Key Features

  - Prefix governance: keys such as "job:42" are governed by the Definition bound to "job:".
  - Lazy initialization: the first write to a governed hash stamps the initial state, never overwriting an existing one.
  - Validated transitions: an event fires only from one of its source states.
  - Pluggable atomicity: direct, locked or compare-and-swap read-modify-write.
  - Explicit persistence: Definitions are stored as self-describing JSON with encode, decode and release hooks.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/hashfsm"
		"github.com/aretw0/hashfsm/pkg/adapters/memory"
	)

	func main() {
		ctx := context.Background()
		host := memory.NewStore()
		mod := hashfsm.New(host)

		// Stamp new entities as they are written.
		sub, err := mod.Observe(ctx, host)
		if err != nil {
			log.Fatal(err)
		}
		defer sub.Close()

		_, err = mod.Create(ctx, []byte(`
	name: JobFSM
	prefix: "job:"
	field: state
	states: [sleeping, running]
	events:
	  - {name: run, from: [sleeping], to: running}
	`))
		if err != nil {
			log.Fatal(err)
		}

		_ = host.SetField(ctx, "job:42", "owner", "alice") // stamps state=sleeping
		ok, _ := mod.Trigger(ctx, "JobFSM", "job:42", "run")
		fmt.Println(ok) // true
	}
*/
package hashfsm
