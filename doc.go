/*
Package main implements sinkhole, a filtering and caching DNS forwarder.

Sinkhole sits between DNS clients and one upstream resolver:

  - Queries for names on the denylist are answered with an authoritative NXDOMAIN
  - Repeat queries are served from a cache keyed by (name, type)
  - Everything else is forwarded to the upstream and cached for the smallest record TTL
  - Concurrent misses for the same question share one upstream exchange
  - Metrics and a small admin API are served over HTTP

Architecture:

Every datagram is decoded by the listener and handled on its own goroutine by
a chain of middleware. The order is fixed:

 1. Metrics - Prometheus query and outcome counters
 2. Recovery - Panic recovery, answers SERVFAIL
 3. AccessList - IP-based access control
 4. RateLimit - Query rate limiting per client
 5. AccessLog - Query logging
 6. BlockList - Denylist lookup
 7. Cache - Query cache lookup
 8. Forwarder - Upstream resolution and cache population

A background sweeper removes expired cache entries on a fixed interval.

Configuration:

Sinkhole reads a TOML file (default: sinkhole.toml) and generates one with
documented defaults when it does not exist.

Usage:

	sinkhole [flags]
	sinkhole [command]

Available Commands:

	help        Help about any command
	version     Print version information

Flags:

	-c, --config string   Location of config file (default "sinkhole.toml")
	-h, --help            Help for sinkhole
*/
package main // import "github.com/sinkhole-dns/sinkhole"
