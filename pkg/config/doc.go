// Package config loads reservoir host configuration from YAML.
//
// # Key Features
//
// - Config: one structure covering the pool, spawner, codecs and observability
// - Environment variable substitution with ${VAR_NAME} and ${VAR_NAME:-fallback}
// - Defaults applied before loading, so a file only states what it changes
// - Pool storage and recycle names are validated by the pool package parsers
//
// # Usage
//
//	cfg, err := config.LoadFile("reservoir.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	opts, err := cfg.Pool.Options()
//	if err != nil {
//		log.Fatal(err)
//	}
//	p, err := pool.New(newActor, disposeActor, opts...)
//
// # Environment Variable Substitution
//
//	# reservoir.yaml
//	pool:
//	  name: actors
//	  capacity: ${ACTOR_CAPACITY:-32}
//	  storage: queue
//	  recycle: fifo
//	spawner:
//	  interval: 250ms
//	  lifetime: 3s
//	  points:
//	    - {name: north, x: 0, y: 10, weight: 3}
//	    - {name: south, x: 0, y: -10, weight: 1}
package config
