// Package cmd implements the command-line interface of rKV. It provides a
// hierarchical command structure for running the server and for talking to it
// as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the rKV server
//   - cli: Client commands (get, set, hget, hset, hmget, hgetall, sismember,
//     addmember, echo, raw) and the perf benchmark tool
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set with an environment variable RKV_<FLAG> (dashes
// replaced by underscores, e.g. RKV_LOG_LEVEL=debug). Variables from .env and
// .env.local in the working directory are loaded first.
//
// See rkv -help for a list of all commands.
package cmd
