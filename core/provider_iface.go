package core

import "context"

// ContentProvider is the content-addressed storage capability Chain,
// Miner, and MineTask depend on. It is declared here (rather than
// imported from the provider package) so this package stays at the
// lowest import tier — any concrete type satisfying this method set,
// such as provider.JointProvider, can be passed in without core ever
// importing provider.
type ContentProvider interface {
	Path(ctx context.Context, hash, link string, skipCheck bool) (path string, ok bool)
	Distribute(ctx context.Context, hash string) (link string, ok bool)
	Write(name string, content []byte) (hash string, ok bool)
	Copy(path string) (newPath string, ok bool)
	Nodes(port int) NodeSet
}
