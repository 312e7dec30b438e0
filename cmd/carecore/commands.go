package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"carecore/internal/core"
	"carecore/pkg/domain"
)

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return domain.DayOf(time.Now().UTC()), nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD", value)
	}
	return day, nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default manager account and ward layout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, _ *core.Staff) error {
				if err := core.EnsureDefaultFacility(ctx, svc.Store()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "facility seeded")
				return nil
			})
		},
	}
}

func addStaffCmd() *cobra.Command {
	var role, username, password string
	cmd := &cobra.Command{
		Use:   "add-staff <id> <name>",
		Short: "Create a staff member (manager only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				r, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				created, err := svc.AddStaff(ctx, actor, core.Staff{
					ID:       args[0],
					Name:     args[1],
					Username: username,
					Role:     r,
				}, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.ID, created.Name, created.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "doctor|nurse|manager")
	cmd.Flags().StringVar(&username, "username", "", "login username")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func setPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <staff> <password>",
		Short: "Set a staff member's password (manager only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				return svc.SetStaffPassword(ctx, actor, args[0], args[1])
			})
		},
	}
}

func admitCmd() *cobra.Command {
	var gender string
	cmd := &cobra.Command{
		Use:   "admit <bed> <resident-id> <name>",
		Short: "Admit a resident into a vacant bed (manager only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				created, err := svc.AdmitResident(ctx, actor, args[0], core.Resident{
					ID:     args[1],
					Name:   args[2],
					Gender: gender,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admitted %s into %s\n", created.Name, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "", "resident gender")
	return cmd
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from-bed> <to-bed>",
		Short: "Move a resident between beds (nurse on duty)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				return svc.MoveResident(ctx, actor, args[0], args[1])
			})
		},
	}
}

func assignShiftCmd() *cobra.Command {
	var day, shiftType string
	var replace bool
	cmd := &cobra.Command{
		Use:   "assign-shift <staff>",
		Short: "Assign a shift block to a staff member (manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				d, err := parseDay(day)
				if err != nil {
					return err
				}
				st, err := domain.ParseShiftType(shiftType)
				if err != nil {
					return err
				}
				return svc.AssignOrReplaceShift(ctx, actor, args[0], d, st, replace)
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "shift day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&shiftType, "type", "", "DAY|EVE")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace existing shifts on that day")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func removeShiftCmd() *cobra.Command {
	var day, shiftType string
	cmd := &cobra.Command{
		Use:   "remove-shift <staff>",
		Short: "Remove a shift block from a staff member (manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				d, err := parseDay(day)
				if err != nil {
					return err
				}
				st, err := domain.ParseShiftType(shiftType)
				if err != nil {
					return err
				}
				return svc.RemoveShift(ctx, actor, args[0], d, st)
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "shift day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&shiftType, "type", "", "DAY|EVE")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func rosterCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "List shifts for staff holding a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, _ *core.Staff) error {
				r, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				shifts, err := svc.RosterByRole(ctx, r)
				if err != nil {
					return err
				}
				for _, sh := range shifts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", sh.Day.Format("2006-01-02"), sh.Type, sh.StaffID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "doctor|nurse|manager")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func staffCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "List staff holding a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, _ *core.Staff) error {
				r, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				members, err := svc.ListStaffByRole(ctx, r)
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%s)\n", m.ID, m.Name, m.Username)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "doctor|nurse|manager")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func prescribeCmd() *cobra.Command {
	var medicine, dose, frequency, notes string
	cmd := &cobra.Command{
		Use:   "prescribe <bed>",
		Short: "Attach a prescription to the bed's occupant (doctor on duty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				rx, err := svc.AttachPrescription(ctx, actor, args[0], []core.PrescriptionItem{{
					Medicine:  medicine,
					Dose:      dose,
					Frequency: frequency,
					Notes:     notes,
				}})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "prescription %s attached\n", rx.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&medicine, "medicine", "", "medicine name")
	cmd.Flags().StringVar(&dose, "dose", "", "dose, e.g. 500mg")
	cmd.Flags().StringVar(&frequency, "frequency", "", "e.g. 8-hourly")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("medicine")
	_ = cmd.MarkFlagRequired("dose")
	return cmd
}

func rxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rx",
		Short: "Edit prescription items (doctor on duty)",
	}
	cmd.AddCommand(rxAddCmd(), rxEditCmd(), rxRemoveCmd())
	return cmd
}

func rxAddCmd() *cobra.Command {
	var medicine, dose, frequency, notes string
	cmd := &cobra.Command{
		Use:   "add <prescription-id>",
		Short: "Append a medicine item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				return svc.AddPrescriptionItem(ctx, actor, args[0], core.PrescriptionItem{
					Medicine:  medicine,
					Dose:      dose,
					Frequency: frequency,
					Notes:     notes,
				})
			})
		},
	}
	cmd.Flags().StringVar(&medicine, "medicine", "", "medicine name")
	cmd.Flags().StringVar(&dose, "dose", "", "dose")
	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("medicine")
	_ = cmd.MarkFlagRequired("dose")
	return cmd
}

func rxEditCmd() *cobra.Command {
	var medicine, dose, frequency, notes string
	cmd := &cobra.Command{
		Use:   "edit <prescription-id> <index>",
		Short: "Replace the item at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				index, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid index %q", args[1])
				}
				return svc.EditPrescriptionItem(ctx, actor, args[0], index, core.PrescriptionItem{
					Medicine:  medicine,
					Dose:      dose,
					Frequency: frequency,
					Notes:     notes,
				})
			})
		},
	}
	cmd.Flags().StringVar(&medicine, "medicine", "", "medicine name")
	cmd.Flags().StringVar(&dose, "dose", "", "dose")
	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("medicine")
	_ = cmd.MarkFlagRequired("dose")
	return cmd
}

func rxRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <prescription-id> <index>",
		Short: "Remove the item at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				index, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid index %q", args[1])
				}
				return svc.RemovePrescriptionItem(ctx, actor, args[0], index)
			})
		},
	}
}

func administerCmd() *cobra.Command {
	var dose string
	var index int
	cmd := &cobra.Command{
		Use:   "administer <bed> <prescription-id>",
		Short: "Record an administered dose (nurse on duty)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				rec, err := svc.AdministerDose(ctx, actor, args[0], args[1], index, dose)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "administered %s %s at %s\n", rec.Medicine, rec.Dose, rec.Time.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&index, "item", 0, "prescription item index")
	cmd.Flags().StringVar(&dose, "dose", "", "dose override (default: prescribed dose)")
	return cmd
}

func residentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resident <bed>",
		Short: "Show the bed's current occupant (doctor or nurse on duty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				r, err := svc.ResidentInBed(ctx, actor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", r.ID, r.Name)
				return nil
			})
		},
	}
}

func medlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "medlog <bed>",
		Short: "Show the administration log for the bed's occupant (doctor or nurse on duty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				records, err := svc.AdministrationLogForBed(ctx, actor, args[0])
				if err != nil {
					return err
				}
				for _, rec := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s  by %s\n", rec.Time.Format(time.RFC3339), rec.Medicine, rec.Dose, rec.StaffID)
				}
				return nil
			})
		},
	}
}

func complianceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compliance",
		Short: "Evaluate the weekly roster compliance rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				if err := svc.CheckCompliance(ctx, actor); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "roster compliant")
				return nil
			})
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Print the audit trail in commit order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(_ context.Context, svc *core.Service, _ *core.Staff) error {
				for _, entry := range svc.AuditLog() {
					fmt.Fprintln(cmd.OutOrStdout(), entry.String())
				}
				return nil
			})
		},
	}
}

func exportAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-audit <key>",
		Short: "Export the audit trail to the archive store (manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *core.Service, actor *core.Staff) error {
				info, err := svc.ExportAuditLog(ctx, actor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%d bytes)\n", info.Key, info.Size)
				return nil
			})
		},
	}
}
