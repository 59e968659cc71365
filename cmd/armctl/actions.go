package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/session"
)

type ListCommand struct{}

func (c *ListCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}

	catalog := store.Catalog()
	if len(catalog) == 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("No actions recorded in %s", store.Path())))
		return nil
	}
	fmt.Println(renderCatalog(catalog))
	return nil
}

type ShowCommand struct {
	Args struct {
		Action string `positional-arg-name:"action"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ShowCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}

	act, err := store.Action(c.Args.Action)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(act.Name))
	fmt.Println(renderAction(a.cfg.Arm.ServoIDs, act))
	return nil
}

type RecordCommand struct {
	Args struct {
		Action string `positional-arg-name:"action"`
		Pose   string `positional-arg-name:"pose" description:"hover, pre-grasp, grasp or post-grasp"`
	} `positional-args:"yes" required:"yes"`
}

func (c *RecordCommand) Execute(args []string) error {
	// Reject a bad pose type before connecting to the arm.
	pt, err := action.ParsePoseType(c.Args.Pose)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	arm, err := connectPassive(a)
	if err != nil {
		return err
	}
	defer arm.Close()

	ctx := context.Background()
	catalog, err := store.Record(ctx, arm, c.Args.Action, pt)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Recorded %s pose of %q", pt, c.Args.Action)))
	fmt.Println(renderAction(a.cfg.Arm.ServoIDs, catalog[c.Args.Action]))
	return nil
}

type RunCommand struct {
	Args struct {
		Action string `positional-arg-name:"action"`
	} `positional-args:"yes" required:"yes"`
}

func (c *RunCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	// Ctrl-C stops the run before the next pose; a move in progress still settles.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := a.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeSession(context.Background(), sess)

	res, err := sess.Run(ctx, c.Args.Action)
	reportRun(res, err)
	return err
}

func reportRun(res action.Result, err error) {
	var incomplete *action.IncompleteActionError
	var hw *action.HardwareError
	switch {
	case err == nil:
		fmt.Println(successStyle.Render(fmt.Sprintf("%s completed successfully.", res.Action)))
	case errors.As(err, &incomplete):
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s pose is not recorded, %s is incomplete.", incomplete.Missing, incomplete.Action)))
		fmt.Println(dimStyle.Render(fmt.Sprintf("Record it with: armctl record %s %s", incomplete.Action, incomplete.Missing)))
	case errors.As(err, &hw):
		fmt.Println(errorStyle.Render(fmt.Sprintf("Hardware failure at %s pose: %v", hw.PoseType, hw.Cause)))
	case errors.Is(err, action.ErrNotFound):
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s is not a valid action.", res.Action)))
	default:
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s stopped: %v", res.Action, err)))
	}
}

type JogCommand struct {
	Args struct {
		Servo int     `positional-arg-name:"servo-id"`
		Delta float64 `positional-arg-name:"degrees"`
	} `positional-args:"yes" required:"yes"`
}

func (c *JogCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Torque stays on after exit so the arm holds the jogged pose.
	sess, err := a.openSession(ctx, false, session.WithTorqueKept())
	if err != nil {
		return err
	}
	defer a.closeSession(ctx, sess)

	pose, err := sess.Jog(ctx, c.Args.Servo, c.Args.Delta)
	if err != nil {
		return err
	}
	fmt.Println(renderPose(a.cfg.Arm.ServoIDs, pose))
	return nil
}
