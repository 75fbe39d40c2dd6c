// Package process executes mandated searches and bookings through local
// provider commands, so a host can plug any script in as the action-execution
// collaborator without linking provider SDKs.
package process
