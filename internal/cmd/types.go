package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
)

var (
	typeEnabled      bool
	typeVibrate      bool
	typeSound        string
	typeSilent       bool
	typeOverrideMute bool
	typeSnoozeNotify bool
	typeSnoozePeriod int
	typeName         string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Manage alert types",
}

var typesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert types",
	Args:  cobra.NoArgs,
	RunE:  runTypesList,
}

var typesCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an alert type",
	Long: `Create an alert type. Flags that are not given take the defaults:
enabled, vibrating, default sound, snooze via notification, 60 minute snooze.`,
	Args: cobra.ExactArgs(1),
	RunE: runTypesCreate,
}

var typesUpdateCmd = &cobra.Command{
	Use:   "update ID|NAME",
	Short: "Change attributes of an alert type",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesUpdate,
}

var typesDeleteCmd = &cobra.Command{
	Use:   "delete ID|NAME",
	Short: "Delete an alert type no schedule entry uses",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesDelete,
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.AddCommand(typesListCmd, typesCreateCmd, typesUpdateCmd, typesDeleteCmd)

	for _, c := range []*cobra.Command{typesCreateCmd, typesUpdateCmd} {
		c.Flags().BoolVar(&typeEnabled, "enabled", true, "Raise alerts of this type")
		c.Flags().BoolVar(&typeVibrate, "vibrate", true, "Vibrate on alert")
		c.Flags().StringVar(&typeSound, "sound", "", "Sound name (default: platform default sound)")
		c.Flags().BoolVar(&typeSilent, "silent", false, "Play no sound")
		c.Flags().BoolVar(&typeOverrideMute, "override-mute", false, "Play sound even when muted")
		c.Flags().BoolVar(&typeSnoozeNotify, "snooze-via-notification", true, "Allow snoozing from the notification")
		c.Flags().IntVar(&typeSnoozePeriod, "snooze-period", alerting.DefaultSnoozePeriodMinutes, "Default snooze period in minutes")
	}
	typesUpdateCmd.Flags().StringVar(&typeName, "name", "", "Rename the type")
	typesCreateCmd.MarkFlagsMutuallyExclusive("sound", "silent")
	typesUpdateCmd.MarkFlagsMutuallyExclusive("sound", "silent")
}

func runTypesList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	types, err := a.svc.Registry.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tVIBRATE\tSOUND\tSNOOZE\tIN USE")
	for i := range types {
		t := &types[i]
		free, err := a.svc.Registry.CanDelete(cmd.Context(), t.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%s\t%dm\t%t\n",
			t.ID, t.Name, t.Enabled, t.Vibrate, soundText(t), t.DefaultSnoozePeriodMinutes, !free)
	}
	return w.Flush()
}

func soundText(t *entities.AlertType) string {
	switch {
	case t.UsesDefaultSound():
		return "default"
	case t.IsSilent():
		return "none"
	default:
		return *t.SoundName
	}
}

func runTypesCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.svc.Registry.EditNew()
	if err := session.SetName(args[0]); err != nil {
		return err
	}
	if err := applyTypeFlags(cmd, session); err != nil {
		_ = session.Discard()
		return err
	}
	if err := session.Commit(cmd.Context()); err != nil {
		_ = session.Discard()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created alert type %d %q\n", session.AlertTypeID(), args[0])
	return nil
}

func runTypesUpdate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := resolveType(cmd.Context(), a.svc, args[0])
	if err != nil {
		return err
	}
	session, err := a.svc.Registry.Edit(cmd.Context(), t.ID)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("name") {
		if err := session.SetName(typeName); err != nil {
			return err
		}
	}
	if err := applyTypeFlags(cmd, session); err != nil {
		_ = session.Discard()
		return err
	}
	if session.State() == alerting.SessionOpen {
		_ = session.Discard()
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to change")
		return nil
	}
	if err := session.Commit(cmd.Context()); err != nil {
		_ = session.Discard()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated alert type %d\n", t.ID)
	return nil
}

// applyTypeFlags stages every flag given on the command line.
func applyTypeFlags(cmd *cobra.Command, s *alerting.TypeSession) error {
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		if err := s.SetEnabled(typeEnabled); err != nil {
			return err
		}
	}
	if flags.Changed("vibrate") {
		if err := s.SetVibrate(typeVibrate); err != nil {
			return err
		}
	}
	if flags.Changed("sound") {
		sound := typeSound
		if err := s.SetSoundName(&sound); err != nil {
			return err
		}
	}
	if flags.Changed("silent") && typeSilent {
		silent := ""
		if err := s.SetSoundName(&silent); err != nil {
			return err
		}
	}
	if flags.Changed("override-mute") {
		if err := s.SetOverrideMute(typeOverrideMute); err != nil {
			return err
		}
	}
	if flags.Changed("snooze-via-notification") {
		if err := s.SetSnoozeViaNotification(typeSnoozeNotify); err != nil {
			return err
		}
	}
	if flags.Changed("snooze-period") {
		if err := s.SetDefaultSnoozePeriod(typeSnoozePeriod); err != nil {
			return err
		}
	}
	return nil
}

func runTypesDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := resolveType(cmd.Context(), a.svc, args[0])
	if err != nil {
		return err
	}
	if err := a.svc.Registry.Delete(cmd.Context(), t.ID); err != nil {
		return fmt.Errorf("cannot delete alert type %q: %w", t.Name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted alert type %d %q\n", t.ID, t.Name)
	return nil
}

// resolveType finds an alert type by id or exact name.
func resolveType(ctx context.Context, svc *alerting.Service, ref string) (*entities.AlertType, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return svc.Registry.Get(ctx, uint(id))
	}
	types, err := svc.Registry.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range types {
		if types[i].Name == ref {
			return &types[i], nil
		}
	}
	return nil, fmt.Errorf("alert type %q: %w", ref, alerting.ErrNotFound)
}
