// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/an-anime-team/flatpak-builds/cmd/aaglsync"

func main() {
	cmd.Execute()
}
