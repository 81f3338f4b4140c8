package multisig

import "fmt"

// SortPolicy selects how keys are ordered in the redeem script.
type SortPolicy uint8

const (
	// SortDefault defers to the canonicalizer's configured preference.
	SortDefault SortPolicy = iota
	// ForceSort orders keys by their compressed serialization.
	ForceSort
	// ForceNoSort keeps keys in caller order.
	ForceNoSort
)

// String returns the policy name.
func (p SortPolicy) String() string {
	switch p {
	case SortDefault:
		return "default"
	case ForceSort:
		return "sort"
	case ForceNoSort:
		return "nosort"
	default:
		return fmt.Sprintf("SortPolicy(%d)", uint8(p))
	}
}

// ParseSortPolicy parses the names returned by String.
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch s {
	case "", "default":
		return SortDefault, nil
	case "sort":
		return ForceSort, nil
	case "nosort":
		return ForceNoSort, nil
	default:
		return SortDefault, fmt.Errorf("unknown sort policy %q (use default, sort or nosort)", s)
	}
}

// resolve turns SortDefault into a concrete choice.
func (p SortPolicy) resolve(sortByDefault bool) (bool, error) {
	switch p {
	case SortDefault:
		return sortByDefault, nil
	case ForceSort:
		return true, nil
	case ForceNoSort:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownSortPolicy, p)
	}
}
