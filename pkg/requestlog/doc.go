// Package requestlog defines the record the gateway keeps for each proxied
// call and the interfaces that move it around.
//
// The recorder subpackage builds a RequestLog after the response has been
// relayed and hands it to a Sink in the background. A Sink is either the
// remote logs service (storage.HTTPSink) or a local Storage wrapped in
// StorageSink. Storage backends live in the storage subpackage; retention
// and export operate on any Storage.
package requestlog
