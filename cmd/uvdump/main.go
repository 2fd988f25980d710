// uvdump - Utility to display contents of uvfits visibility files
// This program reads and displays the headers, visibility rows and antenna
// table from uvfits files produced by this package.
package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"mwa-uvfits/internal/coords"
	"mwa-uvfits/internal/fits"
	"mwa-uvfits/internal/uvfits"
	"mwa-uvfits/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	showVersion  bool
	showAntennas bool
	numRows      int
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "uvdump [file.uvfits]",
	Short: "Display contents of uvfits visibility files",
	Long: `uvdump displays the primary header, visibility rows and AIPS AN antenna
table of a uvfits file. Useful for verifying written observations.

Display modes:
  --rows N     Show the first N visibility rows (UVWs, baseline, date)
  --antennas   Show the antenna table rows`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("uvdump"))
			return
		}

		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}

		// Read the effective values through viper so UVDUMP_* environment
		// variables apply on top of the flag defaults.
		numRows = viper.GetInt("display.rows")
		showAntennas = viper.GetBool("display.antennas")
		verbose = viper.GetBool("verbose")

		if err := displayFile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().IntVarP(&numRows, "rows", "r", 10, "number of visibility rows to display")
	rootCmd.Flags().BoolVarP(&showAntennas, "antennas", "a", false, "display the antenna table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("display.rows", rootCmd.Flags().Lookup("rows"))
	viper.BindPFlag("display.antennas", rootCmd.Flags().Lookup("antennas"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("UVDUMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// displayFile reads and displays the contents of a uvfits file
func displayFile(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	f, err := fits.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open uvfits file: %w", err)
	}
	defer f.Close()

	fmt.Printf("UVFITS FILE READER %s\n\n", version.GetFullVersion())

	fileInfo, err := os.Stat(filename)
	if err != nil {
		return err
	}

	fmt.Printf("📁 File Information:\n")
	fmt.Printf("Name: %s\n", filepath.Base(filename))
	fmt.Printf("Size: %.2f MB (%d bytes)\n", float64(fileInfo.Size())/(1024*1024), fileInfo.Size())
	fmt.Printf("HDUs: %d\n\n", len(f.HDUs))

	if err := displayPrimary(f); err != nil {
		return err
	}

	if err := displayRows(f); err != nil {
		return fmt.Errorf("failed to display visibility rows: %w", err)
	}

	if showAntennas {
		if err := displayAntennaTable(f); err != nil {
			return fmt.Errorf("failed to display antenna table: %w", err)
		}
	}

	return nil
}

// displayPrimary shows the primary header in a formatted table
func displayPrimary(f *fits.File) error {
	h := f.Primary().Header

	gcount, err := h.Int("GCOUNT")
	if err != nil {
		return fmt.Errorf("not a random groups file: %w", err)
	}
	numChans, err := h.Int("NAXIS4")
	if err != nil {
		return err
	}

	fmt.Printf("📊 Observation Metadata:\n")
	if object, err := h.Str("OBJECT"); err == nil {
		fmt.Printf("Object: %s\n", object)
	}
	if telescope, err := h.Str("TELESCOP"); err == nil {
		fmt.Printf("Telescope: %s\n", telescope)
	}
	if dateObs, err := h.Str("DATE-OBS"); err == nil {
		fmt.Printf("Date: %s\n", dateObs)
	}
	if ra, err := h.Float("OBSRA"); err == nil {
		dec, _ := h.Float("OBSDEC")
		fmt.Printf("Phase Centre: RA %.4f°, Dec %.4f°\n", ra, dec)
	}
	if freq, err := h.Float("CRVAL4"); err == nil {
		fmt.Printf("Centre Frequency: %.3f MHz\n", freq/1e6)
	}
	if width, err := h.Float("CDELT4"); err == nil {
		fmt.Printf("Channel Width: %.1f kHz\n", width/1e3)
	}
	fmt.Printf("Channels: %d\n", numChans)
	fmt.Printf("Visibility Rows: %d\n", gcount)
	if software, err := h.Str("SOFTWARE"); err == nil {
		label, _ := h.Str("GITLABEL")
		fmt.Printf("Written By: %s %s\n", software, label)
	}
	fmt.Println()
	return nil
}

// displayRows shows the group parameters of the first visibility rows
func displayRows(f *fits.File) error {
	prim := f.Primary()
	h := prim.Header

	gcount, err := h.Int("GCOUNT")
	if err != nil {
		return err
	}
	pzero5, err := h.Float("PZERO5")
	if err != nil {
		return err
	}

	n := numRows
	if int64(n) > gcount {
		n = int(gcount)
	}

	fmt.Printf("📡 Visibility Rows (first %d of %d):\n", n, gcount)
	fmt.Printf("%-6s %-12s %-12s %-12s %-12s %-16s\n", "#", "U (m)", "V (m)", "W (m)", "Baseline", "JD")
	for i := 0; i < n; i++ {
		group, err := f.ReadGroup(prim, i)
		if err != nil {
			return err
		}
		ant1, ant2 := uvfits.DecodeBaseline(int(group[3]))
		jd := pzero5 + float64(group[4])
		fmt.Printf("%-6d %-12.3f %-12.3f %-12.3f %d-%-10d %-16.6f\n",
			i,
			float64(group[0])*coords.VelC,
			float64(group[1])*coords.VelC,
			float64(group[2])*coords.VelC,
			ant1, ant2, jd)

		if verbose {
			// First channel's four polarizations.
			for p := 0; p < 4 && 5+3*p+2 < len(group); p++ {
				o := 5 + 3*p
				mag := math.Sqrt(float64(group[o]*group[o] + group[o+1]*group[o+1]))
				fmt.Printf("       pol %d: (%.3f, %.3f) |%.3f| weight %.3f\n",
					p, group[o], group[o+1], mag, group[o+2])
			}
		}
	}
	fmt.Println()
	return nil
}

// displayAntennaTable shows the AIPS AN rows
func displayAntennaTable(f *fits.File) error {
	if len(f.HDUs) < 2 {
		return fmt.Errorf("file has no antenna table")
	}
	an := f.HDUs[1]

	numAnts, err := an.Header.Int("NAXIS2")
	if err != nil {
		return err
	}

	fmt.Printf("📶 Antenna Table (%d antennas):\n", numAnts)
	if arrnam, err := an.Header.Str("ARRNAM"); err == nil {
		fmt.Printf("Array: %s\n", arrnam)
	}
	if frame, err := an.Header.Str("FRAME"); err == nil {
		x, _ := an.Header.Float("ARRAYX")
		y, _ := an.Header.Float("ARRAYY")
		z, _ := an.Header.Float("ARRAYZ")
		fmt.Printf("Array Centre (%s): %.3f, %.3f, %.3f\n", frame, x, y, z)
	}
	fmt.Printf("%-6s %-10s %-14s %-14s %-14s\n", "#", "Name", "X (m)", "Y (m)", "Z (m)")
	for i := 0; i < int(numAnts); i++ {
		name, err := f.ReadCellString(an, i, 0)
		if err != nil {
			return err
		}
		xyz, err := f.ReadCellDoubles(an, i, 1)
		if err != nil {
			return err
		}
		nosta, err := f.ReadCellInt32(an, i, 2)
		if err != nil {
			return err
		}
		fmt.Printf("%-6d %-10s %-14.3f %-14.3f %-14.3f\n", nosta, name, xyz[0], xyz[1], xyz[2])
	}
	fmt.Println()
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
