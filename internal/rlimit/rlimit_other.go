//go:build !linux

package rlimit

import "fmt"

func setAddressSpaceLimit(ceiling uint64) (func(), error) {
	return nil, fmt.Errorf("address-space limits are unsupported on this platform")
}
