package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/session"
)

// app holds what every hardware command needs: env, config and logger.
type app struct {
	env robot.Env
	cfg *robot.Config
	log zerolog.Logger
}

func loadEnv() (robot.Env, zerolog.Logger, error) {
	env, err := robot.ParseEnv()
	if err != nil {
		return robot.Env{}, zerolog.Nop(), err
	}
	log, err := logging.New(logging.Config{Level: env.LogLevel, Format: env.LogFormat})
	if err != nil {
		return robot.Env{}, zerolog.Nop(), err
	}
	return env, log, nil
}

func loadApp() (*app, error) {
	env, log, err := loadEnv()
	if err != nil {
		return nil, err
	}

	if !robot.ConfigExists(env.ConfigFile) {
		return nil, fmt.Errorf("no configuration at %s; run 'armctl setup' first", env.ConfigFile)
	}
	cfg, err := robot.LoadConfigFrom(env.ConfigFile)
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)

	log.Debug().Str("config", env.ConfigFile).Str("actions", cfg.CatalogPath()).Msg("configuration loaded")
	return &app{env: env, cfg: cfg, log: log}, nil
}

func (a *app) openStore() (*action.Store, error) {
	return action.Open(a.cfg.CatalogPath(),
		action.WithLogger(a.log),
		action.WithServoCount(len(a.cfg.Arm.ServoIDs)),
	)
}

// openSession connects to the arm and enables torque. With park, the arm
// starts at the home pose and ends at the rest pose. Callers must close the
// session to release torque.
func (a *app) openSession(ctx context.Context, park bool, opts ...session.Option) (*session.Session, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	arm, err := robot.NewArm(a.cfg.Arm)
	if err != nil {
		return nil, fmt.Errorf("connect to arm on %s: %w", a.cfg.Arm.Port, err)
	}

	opts = append([]session.Option{session.WithLogger(a.log)}, opts...)
	cfg := session.Config{
		ServoIDs: a.cfg.Arm.ServoIDs,
		Settle:   a.cfg.Settle(),
	}
	if park {
		cfg.HomePose = a.cfg.Arm.HomePose
		cfg.RestPose = a.cfg.Arm.RestPose
	}
	sess := session.New(arm, store, cfg, opts...)

	if err := sess.Start(ctx); err != nil {
		if cerr := sess.Close(ctx); cerr != nil {
			a.log.Warn().Err(cerr).Msg("close after failed start")
		}
		return nil, err
	}
	return sess, nil
}

func (a *app) closeSession(ctx context.Context, sess *session.Session) {
	if err := sess.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("session close")
	}
}

// connectPassive opens the arm without enabling torque, for reading a pose
// the arm was moved into by hand.
func connectPassive(a *app) (*robot.Arm, error) {
	arm, err := robot.NewArm(a.cfg.Arm)
	if err != nil {
		return nil, fmt.Errorf("connect to arm on %s: %w", a.cfg.Arm.Port, err)
	}
	return arm, nil
}
