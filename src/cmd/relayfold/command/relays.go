package command

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/relayfold/src/relays"
	"github.com/spf13/cobra"
)

var relaysDataDir string

// NewRelaysCmd produces the commands that edit [datadir]/relays.json
func NewRelaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relays",
		Short: "Manage the relay list",
	}

	cmd.PersistentFlags().StringVar(&relaysDataDir, "datadir", _config.Relayfold.DataDir, "Top-level directory for configuration and data")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the relay list",
			RunE:  listRelays,
		},
		&cobra.Command{
			Use:   "add [url...]",
			Short: "Add relays to the list",
			Args:  cobra.MinimumNArgs(1),
			RunE:  addRelays,
		},
		&cobra.Command{
			Use:   "remove [url...]",
			Short: "Remove relays from the list",
			Args:  cobra.MinimumNArgs(1),
			RunE:  removeRelays,
		},
	)

	return cmd
}

func readRelayList() (*relays.JSONRelayList, *relays.RelayList, error) {
	store := relays.NewJSONRelayList(relaysDataDir)

	list, err := store.RelayList()
	if os.IsNotExist(err) {
		return store, relays.NewRelayList(), nil
	}
	if err != nil {
		return nil, nil, err
	}
	return store, list, nil
}

func listRelays(cmd *cobra.Command, args []string) error {
	_, list, err := readRelayList()
	if err != nil {
		return err
	}

	for _, r := range list.Relays() {
		fmt.Printf("%s read=%t write=%t\n", r.URL, r.Read, r.Write)
	}
	return nil
}

func addRelays(cmd *cobra.Command, args []string) error {
	store, list, err := readRelayList()
	if err != nil {
		return err
	}

	for _, url := range args {
		r, err := relays.NewRelay(url)
		if err != nil {
			return fmt.Errorf("relay %q: %w", url, err)
		}
		list.Add(r)
	}

	if err := os.MkdirAll(relaysDataDir, 0700); err != nil {
		return err
	}
	return store.Write(list.Relays())
}

func removeRelays(cmd *cobra.Command, args []string) error {
	store, list, err := readRelayList()
	if err != nil {
		return err
	}

	for _, url := range args {
		r, err := relays.NewRelay(url)
		if err != nil {
			return fmt.Errorf("relay %q: %w", url, err)
		}
		list.Remove(r.URL)
	}

	return store.Write(list.Relays())
}
