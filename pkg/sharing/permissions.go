package sharing

// Permissions gates what a recipient may do with the content a share token
// unlocks.
type Permissions struct {
	CanRead   bool `cbor:"can_read"`
	CanWrite  bool `cbor:"can_write"`
	CanDelete bool `cbor:"can_delete"`
}

// ReadOnlyPermissions grants read access only.
func ReadOnlyPermissions() Permissions { return Permissions{CanRead: true} }

// ReadWritePermissions grants read and write but not delete.
func ReadWritePermissions() Permissions { return Permissions{CanRead: true, CanWrite: true} }

// FullPermissions grants read, write, and delete.
func FullPermissions() Permissions { return Permissions{CanRead: true, CanWrite: true, CanDelete: true} }
