// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	if err := NewCommand(version).Execute(); err != nil {
		logrus.WithError(err).Error("resolverd: exiting")
		os.Exit(1)
	}
}
