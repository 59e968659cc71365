package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/session"
)

type ShellCommand struct{}

const (
	taskJog    = "jog"
	taskRun    = "run"
	taskRecord = "record"
	taskList   = "list"
	taskQuit   = "quit"
)

func (c *ShellCommand) Execute(args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	sess, err := a.openSession(ctx, true,
		session.WithTransitionHook(func(tr action.Transition) {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  %s -> %s", tr.From, tr.To)))
		}),
	)
	if err != nil {
		return err
	}
	defer a.closeSession(ctx, sess)

	fmt.Println(headerStyle.Render("armctl shell"))
	fmt.Println(dimStyle.Render("Jog servos into place, record the four poses of an action, then run it."))
	fmt.Println()

	for {
		var task string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Task").
					Options(
						huh.NewOption("Position one servo", taskJog),
						huh.NewOption("Run a saved action", taskRun),
						huh.NewOption("Record a pose", taskRecord),
						huh.NewOption("List actions", taskList),
						huh.NewOption("Quit", taskQuit),
					).
					Value(&task),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		// Failures are reported and the loop continues.
		var taskErr error
		switch task {
		case taskJog:
			taskErr = shellJog(ctx, a, sess)
		case taskRun:
			taskErr = shellRun(ctx, sess)
		case taskRecord:
			taskErr = shellRecord(ctx, a, sess)
		case taskList:
			fmt.Println(renderCatalog(sess.Store().Catalog()))
		case taskQuit:
			return nil
		}
		if taskErr != nil && !errors.Is(taskErr, huh.ErrUserAborted) {
			fmt.Println(errorStyle.Render(taskErr.Error()))
		}
		fmt.Println()
	}
}

func shellJog(ctx context.Context, a *app, sess *session.Session) error {
	ids := sess.ServoIDs()
	options := make([]huh.Option[int], len(ids))
	for i, id := range ids {
		options[i] = huh.NewOption(fmt.Sprintf("%d (%s)", id, robot.MotorForID(id)), id)
	}

	var servoID int
	var delta string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("Servo").Options(options...).Value(&servoID),
			huh.NewInput().
				Title("Delta angle (degrees, may be negative)").
				Value(&delta).
				Validate(func(s string) error {
					_, err := strconv.ParseFloat(s, 64)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	deg, _ := strconv.ParseFloat(delta, 64)
	pose, err := sess.Jog(ctx, servoID, deg)
	if err != nil {
		return err
	}
	fmt.Println(renderPose(a.cfg.Arm.ServoIDs, pose))
	return nil
}

func shellRun(ctx context.Context, sess *session.Session) error {
	names := sess.Store().Names()
	if len(names) == 0 {
		return fmt.Errorf("no actions recorded yet")
	}

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Action").Options(huh.NewOptions(names...)...).Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	res, err := sess.Run(ctx, name)
	reportRun(res, err)
	return nil
}

func shellRecord(ctx context.Context, a *app, sess *session.Session) error {
	var name, pose string
	poseNames := make([]string, 0, len(action.Sequence()))
	for _, t := range action.Sequence() {
		poseNames = append(poseNames, t.String())
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Action name").
				Suggestions(sess.Store().Names()).
				Value(&name).
				Validate(func(s string) error {
					if s == "" {
						return action.ErrInvalidName
					}
					return nil
				}),
			huh.NewSelect[string]().Title("Pose type").Options(huh.NewOptions(poseNames...)...).Value(&pose),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	pt, err := action.ParsePoseType(pose)
	if err != nil {
		return err
	}
	catalog, err := sess.Record(ctx, name, pt)
	if err != nil {
		fmt.Println(errorStyle.Render("Action recording failed"))
		return err
	}

	fmt.Println(successStyle.Render("Action recording successful"))
	fmt.Println(renderAction(a.cfg.Arm.ServoIDs, catalog[name]))
	return nil
}
