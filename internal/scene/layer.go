package scene

import (
	"fmt"
	"regexp"
)

var itemName = regexp.MustCompile(`^Item_\d+$`)

// ItemName returns the synthetic root name given to the i-th subtree of an
// exported layer. Synthetic roots keep copies of same-named prims apart.
func ItemName(i int) string { return fmt.Sprintf("Item_%02d", i) }

// IsItemRoot reports whether p is a synthetic export root: a typeless
// top-level prim named Item_NN.
func IsItemRoot(p *Prim) bool {
	return p.TypeName == "" && p.Path.Depth() == 1 && itemName.MatchString(p.Name())
}
