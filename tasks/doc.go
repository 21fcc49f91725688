// Package tasks is the typed client for the per-user task endpoints. Every call
// goes through the Doer it was built with, which in an application is the
// request gateway, so credentials are attached and renewed transparently.
package tasks
