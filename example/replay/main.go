/*
	Copyright 2024 StepCounting Authors

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stepcounting/sdk-golang/stepcounter"
	"github.com/stepcounting/sdk-golang/stepcounter/config"
	"github.com/stepcounting/sdk-golang/stepcounter/lifecycle"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
)

func init() {
	pfxlog.GlobalInit(logrus.InfoLevel, pfxlog.DefaultOptions().SetTrimPrefix("github.com/stepcounting/"))
}

var settings = viper.New()

var root = &cobra.Command{
	Use:   "stepcounter-replay",
	Short: "Replays recorded step samples and app state changes through a step counter session",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if settings.GetBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}

		switch settings.GetString("log-formatter") {
		case "pfxlog":
			pfxlog.SetFormatter(pfxlog.NewFormatter(pfxlog.DefaultOptions().SetTrimPrefix("github.com/stepcounting/").StartingToday()))
		case "json":
			pfxlog.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z"})
		case "text":
			pfxlog.SetFormatter(&logrus.TextFormatter{})
		default:
			// let logrus do its own thing
		}
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe step counting capability against the scripted module",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, _, err := newSession()
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		status, err := session.IsStepCountingSupported(context.Background())
		if err != nil {
			return err
		}
		return printJson(status)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay a JSON lines file of samples and app state changes",
	Long: `Each line of the file is either a raw sample as a native module would send it,
	{"sample":{"counterType":"STEP_COUNTER","steps":120,"startDate":1700000000000,"endDate":1700003600000,"distance":87.456}}
	or an app state change, {"appState":"background"}. Normalized samples are printed as they
	are delivered, followed by the session state once the file is done.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(args[0])
	},
}

func init() {
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().String("log-formatter", "", "Specify log formatter [json|pfxlog|text]")
	root.PersistentFlags().StringP("config", "c", "", "Step counter config file (json or yaml)")
	root.PersistentFlags().Bool("supported", true, "Whether the scripted module reports a step sensor")
	root.PersistentFlags().Bool("granted", true, "Whether the scripted module reports the permission as granted")
	replayCmd.Flags().Int64("from", 0, "Request samples from this epoch millisecond onwards")

	root.AddCommand(probeCmd, replayCmd)

	settings.SetEnvPrefix("STEPCOUNTER")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(root.PersistentFlags())
	_ = settings.BindPFlags(replayCmd.Flags())
}

func main() {
	if err := root.Execute(); err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if path := settings.GetString("config"); path != "" {
		return config.NewFromFile(path)
	}
	return config.NewFromEnv()
}

func newSession() (stepcounter.Session, *lifecycle.ManualSource, *scriptedModule, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	module := &scriptedModule{
		supported: settings.GetBool("supported"),
		granted:   settings.GetBool("granted"),
	}
	bridge, err := sensor.SelectBridgeByName(cfg.Bridge, module, nil, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	source := lifecycle.NewManualSource()
	options := stepcounter.OptionsFromConfig(cfg)
	options.SignalSource = source

	session, err := stepcounter.NewSession(bridge, options)
	if err != nil {
		return nil, nil, nil, err
	}
	return session, source, module, nil
}

func replay(path string) error {
	log := pfxlog.Logger().WithField("file", path)

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "unable to open replay file %s", path)
	}
	defer func() { _ = file.Close() }()

	session, source, module, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	from := time.UnixMilli(settings.GetInt64("from"))
	_, err = session.StartStepCounterUpdate(from, func(s *stepcounter.StepSample) {
		if err := printJson(s); err != nil {
			log.WithError(err).Error("unable to print sample")
		}
	})
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lineLog := log.WithField("line", lineNumber)
		container, err := gabs.ParseJSON([]byte(line))
		if err != nil {
			lineLog.WithError(err).Warn("skipping malformed line")
			continue
		}

		if state, ok := container.Path("appState").Data().(string); ok {
			lineLog.WithField("appState", state).Debug("app state change")
			source.Emit(lifecycle.AppState(state))
			continue
		}

		if payload, ok := container.Path("sample").Data().(map[string]interface{}); ok {
			if err = module.emit(payload); err != nil {
				lineLog.WithError(err).Warn("sample not delivered")
			}
			continue
		}

		lineLog.Warn("line is neither a sample nor an app state change")
	}

	if err = scanner.Err(); err != nil {
		return errors.Wrapf(err, "unable to read replay file %s", path)
	}

	return printJson(session.Inspect())
}

func printJson(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
