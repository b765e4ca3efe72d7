// Package proxy holds the HTTP plumbing shared by the gateway and the logs
// API: bearer-token extraction, bounded body reads, the JSON rejection
// envelope and the mapping from internal errors to that envelope.
//
// Handlers report failures by returning an error and letting HandleError
// choose the status:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
package proxy
