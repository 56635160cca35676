// Package models defines the data shapes shared by the tunedeck client.
//
// The package contains two categories of types:
//
// 1. Wire types decoded from backend responses
//   - [Job] : asynchronous job state as returned by GET /jobs/{id}
//   - [JobStatus] : job lifecycle state with terminal-state checks
//   - [Timestamp] : lenient time decoding for backend timestamps
//   - [AuthTokens] : the access/refresh credential pair
//
// 2. Persistent entities stored in the local SQLite database
//   - [JobRecord] : a locally observed job snapshot for history listings
//
// Persistent entities implement the Model interface and are stored through a Repository[T].
package models
