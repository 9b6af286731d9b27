package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/cli"
	"github.com/arunika/dollcore/pkg/devcfg"
)

var (
	flagConfigFile string
	flagInitForce  bool
	flagShowOutput string

	initCfg struct {
		ssid       string
		passphrase string
		url        string
		port       uint16
		deviceID   string
		encoding   string
	}
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the device config blob",
	Long: `Inspect or write the device configuration blob.

The blob is the flash image a doll boots from: WiFi credentials, the
server endpoint, the device identity and the preferred audio encoding,
fixed-layout and CRC32-protected. A missing or corrupt blob is not an
error; the device falls back to factory defaults.

Examples:
  dollcore config init --ssid Home --passphrase secret
  dollcore config set device_id ARUN_DEV_0042A1
  dollcore config show -o yaml
  dollcore config path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the device configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := blobTarget()
		if err != nil {
			return err
		}
		store := &devcfg.Store{Path: path}
		dev, defaulted, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		if flagShowOutput != "" {
			return cli.Output(viewOf(dev), cli.OutputOptions{
				Format: cli.OutputFormat(flagShowOutput),
			})
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		passphrase := "(empty)"
		if dev.Passphrase != "" {
			passphrase = fmt.Sprintf("(set, %d bytes)", len(dev.Passphrase))
		}
		fmt.Print(styles.KeyValue([][2]string{
			{"device_id", dev.DeviceID},
			{"endpoint", fmt.Sprintf("%s (port %d)", dev.ServerURL, dev.ServerPort)},
			{"ssid", dev.SSID},
			{"passphrase", passphrase},
			{"encoding", dev.Encoding.Tag()},
		}))
		if defaulted {
			fmt.Println(styles.Help.Render(fmt.Sprintf("source: factory defaults (no blob at %s)", path)))
		} else {
			fmt.Println(styles.Help.Render("source: " + path))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a fresh config blob",
	Long: `Write a config blob from factory defaults plus the given flags.

Refuses to overwrite an existing blob unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := blobTarget()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !flagInitForce {
			return fmt.Errorf("blob %s exists (use --force to overwrite)", path)
		}

		dev := devcfg.Default()
		if initCfg.ssid != "" {
			dev.SSID = initCfg.ssid
		}
		if initCfg.passphrase != "" {
			dev.Passphrase = initCfg.passphrase
		}
		if initCfg.url != "" {
			dev.ServerURL = initCfg.url
		}
		if initCfg.port != 0 {
			dev.ServerPort = initCfg.port
		}
		if initCfg.deviceID != "" {
			dev.DeviceID = initCfg.deviceID
		}
		if initCfg.encoding != "" {
			f, err := pcm.ParseTag(initCfg.encoding)
			if err != nil {
				return err
			}
			dev.Encoding = f
		}

		if err := saveBlob(cmd, path, dev); err != nil {
			return err
		}
		cli.PrintSuccess("wrote %s", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration field",
	Long: `Set one field and rewrite the blob.

Keys: ssid, passphrase, url, port, device_id, encoding
Encodings: pcm16, mulaw, alaw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := blobTarget()
		if err != nil {
			return err
		}
		store := &devcfg.Store{Path: path}
		dev, _, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		switch key {
		case "ssid":
			dev.SSID = value
		case "passphrase":
			dev.Passphrase = value
		case "url":
			dev.ServerURL = value
		case "port":
			port, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", value, err)
			}
			dev.ServerPort = uint16(port)
		case "device_id":
			dev.DeviceID = value
		case "encoding":
			f, err := pcm.ParseTag(value)
			if err != nil {
				return err
			}
			dev.Encoding = f
		default:
			return fmt.Errorf("unknown key %q (ssid, passphrase, url, port, device_id, encoding)", key)
		}

		if err := saveBlob(cmd, path, dev); err != nil {
			return err
		}
		cli.PrintSuccess("%s = %s", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config blob path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := blobTarget()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVarP(&flagConfigFile, "file", "f", "", "blob path (default ~/.dollcore/config.bin)")

	configShowCmd.Flags().StringVarP(&flagShowOutput, "output", "o", "", "output format: yaml, json")

	configInitCmd.Flags().StringVar(&initCfg.ssid, "ssid", "", "WiFi network name")
	configInitCmd.Flags().StringVar(&initCfg.passphrase, "passphrase", "", "WiFi passphrase")
	configInitCmd.Flags().StringVar(&initCfg.url, "url", "", "server endpoint URL (wss://...)")
	configInitCmd.Flags().Uint16Var(&initCfg.port, "port", 0, "server port")
	configInitCmd.Flags().StringVar(&initCfg.deviceID, "device-id", "", "device identifier")
	configInitCmd.Flags().StringVar(&initCfg.encoding, "encoding", "", "audio encoding: pcm16, mulaw, alaw")
	configInitCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite an existing blob")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// blobTarget resolves the blob path: the --file override or the default
// location.
func blobTarget() (string, error) {
	if flagConfigFile != "" {
		return flagConfigFile, nil
	}
	paths, err := cli.NewPaths()
	if err != nil {
		return "", err
	}
	return paths.BlobFile(), nil
}

// saveBlob validates and writes, creating the default directory when the
// blob lives there.
func saveBlob(cmd *cobra.Command, path string, dev devcfg.Config) error {
	if err := dev.Validate(); err != nil {
		return err
	}
	if flagConfigFile == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return err
		}
		if err := paths.EnsureBaseDir(); err != nil {
			return err
		}
	}
	store := &devcfg.Store{Path: path}
	return store.Save(cmd.Context(), dev)
}

// configView is the machine-readable shape of the blob.
type configView struct {
	DeviceID   string `json:"device_id" yaml:"device_id"`
	ServerURL  string `json:"server_url" yaml:"server_url"`
	ServerPort uint16 `json:"server_port" yaml:"server_port"`
	SSID       string `json:"ssid" yaml:"ssid"`
	Passphrase string `json:"passphrase" yaml:"passphrase"`
	Encoding   string `json:"encoding" yaml:"encoding"`
}

func viewOf(dev devcfg.Config) configView {
	return configView{
		DeviceID:   dev.DeviceID,
		ServerURL:  dev.ServerURL,
		ServerPort: dev.ServerPort,
		SSID:       dev.SSID,
		Passphrase: dev.Passphrase,
		Encoding:   dev.Encoding.Tag(),
	}
}
