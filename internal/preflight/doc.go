// Package preflight provides readiness checks for the filesystem paths and
// external tools ncmdump depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before a batch starts. If any check
//     fails the batch is refused before any input is decoded.
//   - The CLI "ncmdump doctor" command renders every result, including the
//     tool probes that only matter for transcoding.
package preflight
