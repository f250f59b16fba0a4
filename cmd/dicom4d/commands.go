package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"dicom4d/pkg/reconstruction"
	"dicom4d/pkg/velocity"
	"dicom4d/pkg/volume"
)

var (
	sliceZ, sliceT int
	venc           float64
)

func init() {
	RootCmd.AddCommand(dimsCmd, assembleCmd, velocityCmd, sliceCmd)

	for _, c := range []*cobra.Command{assembleCmd, velocityCmd} {
		c.Flags().IntVar(&sliceZ, "slice-z", -1, "print the XY plane at this z (requires --slice-t)")
		c.Flags().IntVar(&sliceT, "slice-t", -1, "print the XY plane at this t (requires --slice-z)")
	}
	velocityCmd.Flags().Float64Var(&venc, "venc", velocity.DefaultVENC, "velocity encoding; overrides processing.venc")
}

// dimsCmd prints the shape inferred for a directory without decoding pixels
var dimsCmd = &cobra.Command{
	Use:   "dims DIR",
	Short: "Infer the 4D dimensions of a slice directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconstructor(args[0])
		if err != nil {
			return err
		}
		return Dims(cmd.OutOrStdout(), r)
	},
}

// assembleCmd assembles a directory and prints a summary of the volume
var assembleCmd = &cobra.Command{
	Use:   "assemble DIR",
	Short: "Assemble a slice directory into a 4D volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconstructor(args[0])
		if err != nil {
			return err
		}
		return Assemble(cmd.OutOrStdout(), r, sliceZ, sliceT)
	},
}

// velocityCmd assembles a phase directory and converts it to velocity
var velocityCmd = &cobra.Command{
	Use:   "velocity DIR",
	Short: "Assemble a phase directory and convert it to a velocity field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconstructor(args[0])
		if err != nil {
			return err
		}

		mode, err := velocity.ParseRescaleMode(Config.Processing.RescaleMode)
		if err != nil {
			return err
		}

		c := velocity.NewConverter(r)
		c.Mode = mode
		c.Venc = Config.Processing.Venc
		if cmd.Flags().Changed("venc") {
			c.Venc = venc
		}

		return Velocity(cmd.OutOrStdout(), c, sliceZ, sliceT)
	},
}

// sliceCmd decodes one file on its own
var sliceCmd = &cobra.Command{
	Use:   "slice FILE",
	Short: "Decode a single slice file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconstructor(filepath.Dir(args[0]))
		if err != nil {
			return err
		}
		return Slice(cmd.OutOrStdout(), r, args[0])
	},
}

// Dims infers and prints the dimensions of r's input directory
func Dims(w io.Writer, r *reconstruction.Reconstructor) error {
	dims, err := r.InferDimensions()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Dimensions: %s\n", dims)
	fmt.Fprintf(w, "x (columns): %d\n", dims.X)
	fmt.Fprintf(w, "y (rows): %d\n", dims.Y)
	fmt.Fprintf(w, "z (slices): %d\n", dims.Z)
	fmt.Fprintf(w, "t (time points): %d\n", dims.T)
	return nil
}

// Assemble assembles r's input directory and prints the result
func Assemble(w io.Writer, r *reconstruction.Reconstructor, z, t int) error {
	vol, report, err := r.Process()
	if err != nil {
		return err
	}
	return printResult(w, vol, report, z, t)
}

// Velocity generates the velocity field of c's input directory and prints
// the result
func Velocity(w io.Writer, c *velocity.Converter, z, t int) error {
	vol, report, err := c.GenerateVelocityField()
	if err != nil {
		return err
	}
	return printResult(w, vol, report, z, t)
}

// Slice decodes path and prints its shape and first sample
func Slice(w io.Writer, r *reconstruction.Reconstructor, path string) error {
	v, err := r.DecodeFile(path)
	if err != nil {
		return err
	}

	sample, err := v.At(0, 0, 0, 0)
	if err != nil {
		return err
	}

	st := v.Stats()
	fmt.Fprintf(w, "Slice: %s\n", path)
	fmt.Fprintf(w, "Dimensions: %d x %d x %d x %d\n", v.SizeX(), v.SizeY(), v.SizeZ(), v.SizeT())
	fmt.Fprintf(w, "Sample value at (0,0,0,0): %g\n", sample)
	fmt.Fprintf(w, "Range: [%g, %g], mean %.3f\n", st.Min, st.Max, st.Mean)
	return nil
}

func printResult(w io.Writer, vol *volume.Volume4D, report *reconstruction.Report, z, t int) error {
	fmt.Fprint(w, vol.Info())

	st := vol.Stats()
	fmt.Fprintf(w, "Range: [%g, %g], mean %.3f, stddev %.3f\n", st.Min, st.Max, st.Mean, st.StdDev)
	fmt.Fprintf(w, "Files: %d, decoded: %d of %d slices\n", report.Files, report.Decoded(), report.Dims.Slices())

	for _, m := range report.Missing() {
		fmt.Fprintf(w, "missing z=%d t=%d %s: %v\n", m.Z, m.T, m.Path, m.Err)
	}
	for _, e := range report.Extraneous() {
		fmt.Fprintf(w, "extraneous %s\n", e.Path)
	}

	if z < 0 && t < 0 {
		return nil
	}

	s, err := vol.FormatSlice(t, z)
	if err != nil {
		return err
	}
	fmt.Fprint(w, s)
	return nil
}
