package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dicom4d/pkg/config"
	"dicom4d/pkg/dicomio"
	"dicom4d/pkg/reconstruction"
)

var (
	configFile string

	// Config holds the configuration loaded before every command runs
	Config *config.Config

	// Log is the logger handed to every pipeline component
	Log = logrus.New()

	// source opens the headers and pixel data of slice files. Tests swap it
	// for an in-memory store.
	source = func() (reconstruction.HeaderReader, reconstruction.SliceDecoder) {
		r := dicomio.NewReader()
		return r, r
	}
)

// RootCmd is the top-level dicom4d command
var RootCmd = &cobra.Command{
	Use:   "dicom4d",
	Short: "Assemble 4D volumes from directories of DICOM slices",
	Long: `dicom4d reads a flat directory holding one DICOM file per (z, t)
position, infers the volume shape from the first readable header and the
file count, and assembles the slices into an x, y, z, t volume.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Startup(configFile)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./dicom4d.yaml", "configuration file location")
}

// Startup loads the configuration file and configures logging from it
func Startup(configFile string) error {
	var err error
	Config, err = config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	level, err := Config.Level()
	if err != nil {
		return err
	}
	Log.SetLevel(level)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	Log.WithFields(logrus.Fields{
		"config":      configFile,
		"numCores":    Config.Processing.NumCores,
		"ordering":    Config.Processing.Ordering,
		"rescaleMode": Config.Processing.RescaleMode,
	}).Debug("configuration loaded")

	return nil
}

// newReconstructor builds a reconstructor for dir from the loaded
// configuration
func newReconstructor(dir string) (*reconstruction.Reconstructor, error) {
	headers, decoder := source()

	r := reconstruction.NewReconstructor(Config.Params(dir), headers, decoder)
	r.Log = Log

	order, err := reconstruction.ParseOrdering(Config.Processing.Ordering, headers)
	if err != nil {
		return nil, fmt.Errorf("processing.ordering: %w", err)
	}
	r.Order = order

	return r, nil
}
