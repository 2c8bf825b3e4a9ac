package objstore

// SetAfterLink installs f to run in Dir.Move between linking the
// destination and removing the source.
func SetAfterLink(d *Dir, f func()) { d.afterLink = f }

// SetAfterCopy installs f to run in GCS.Move between the copy and the
// delete of the source.
func SetAfterCopy(g *GCS, f func()) { g.afterCopy = f }
