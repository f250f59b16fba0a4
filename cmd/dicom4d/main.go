// Command dicom4d assembles a 4D volume from a directory of DICOM slices
// and optionally converts it to a velocity field.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("dicom4d failed")
		os.Exit(1)
	}
}
