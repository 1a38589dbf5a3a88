// Package common provides the configuration and logging shared by the rKV
// server, client and command-line interface.
//
// Key Components:
//
//   - ServerConfig: All settings of `rkv serve` (endpoint, transport, decoder,
//     shards, HGETALL sorting, connection limits, metrics endpoint, log level).
//     Validate reports every invalid value at once and names the flag;
//     String renders the summary logged at startup.
//
//   - ClientConfig: Settings of a client (endpoint, transport, timeout, pool
//     size) with the same Validate and String helpers.
//
//   - TransportType / DecoderType: The supported socket types (tcp, unix) and
//     RESP decoders (incremental, batch).
//
//   - Logger: Custom logger factory for Dragonboat's logger package. Every
//     package gets its logger with logger.GetLogger(name); InitLoggers installs
//     the factory and applies the configured level to the server, transport,
//     backend and client loggers.
package common
