// Package transfer moves media between remote object storage and the local
// working directory.
package transfer

import "context"

// ObjectStore is the adapter over remote object storage. Implementations wrap
// failures in domain.ErrTransfer.
type ObjectStore interface {
	// Fetch downloads the object at remoteURI to localPath.
	Fetch(ctx context.Context, remoteURI, localPath string) error
	// Archive uploads the file at localPath to remoteURI and returns the
	// canonical URI it was stored under.
	Archive(ctx context.Context, localPath, remoteURI string) (string, error)
}
