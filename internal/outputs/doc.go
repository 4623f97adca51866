// Package outputs manages the store of completed artifacts: naming, listing
// with derived display names, placeholder markers for in-flight jobs, and
// safe resolution of client-supplied filenames.
package outputs
