// Command hubctl scans for, inspects and drives LEGO Powered Up and
// WeDo 2.0 hubs over Bluetooth Low Energy.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
