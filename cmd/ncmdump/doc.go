// Package main hosts the ncmdump CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the run logger, and hands batches to the workflow manager. Container
// inspection, synthetic container packing, history maintenance, and the
// doctor report are thin views over the internal packages.
package main
