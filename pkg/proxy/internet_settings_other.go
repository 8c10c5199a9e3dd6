//go:build !windows

package proxy

func readInternetSettings() (bool, string, string, error) {
	return false, "", "", nil
}
