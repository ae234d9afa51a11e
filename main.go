/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package main

import "github.com/redhat-appstudio/clerkhook/cmd"

func main() {
	cmd.Execute()
}
