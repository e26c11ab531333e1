package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"edabridge/cmd/edabridge/options"
	"edabridge/pkg/generic"
	baseoptions "edabridge/pkg/generic/options"
	"edabridge/pkg/web"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilserrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/component-base/version"
	"k8s.io/component-base/version/verflag"
	"k8s.io/klog/v2"
)

const (
	ComponentBridge = "edabridge"
)

func NewBridgeCmd() *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentBridge, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                ComponentBridge,
		Long:               `edabridge exposes an Enervent ventilation unit with EDA or MD automation over HTTP and MQTT, with optional Home Assistant discovery.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// initial flag parse, since we disable cobra's flag parsing
			if err := cleanFlagSet.Parse(args); err != nil {
				klog.ErrorS(err, "Failed to parse flag")
				_ = cmd.Usage()
				os.Exit(1)
			}

			// check if there are non-flag arguments in the command line
			cmds := cleanFlagSet.Args()
			if len(cmds) > 0 {
				klog.ErrorS(nil, "Unknown command", "command", cmds[0])
				_ = cmd.Usage()
				os.Exit(1)
			}

			// short-circuit on help
			baseoptions.PrintHelpAndExitIfRequested(cmd, cleanFlagSet)

			// short-circuit on defaultconfig
			baseoptions.PrintDefaultConfigAndExitIfRequested(options.NewDefaultOptions(), cleanFlagSet)

			// short-circuit on verflag
			verflag.PrintAndExitIfRequested()

			if err := baseoptions.ParseAndApplyConfigFile(o, args); err != nil {
				return err
			}

			if errs := options.Validate(o); len(errs) != 0 {
				return utilserrors.NewAggregate(errs)
			}
			if err := o.BaseOptions.ValidateAndApply(); err != nil {
				return err
			}

			// To help debugging, immediately log version
			klog.InfoS("Starting", "component", ComponentBridge, "version", version.Get().GitVersion)
			return run(o)
		},
	}

	verflag.AddFlags(cleanFlagSet)
	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func run(o *options.Options) error {
	c, err := o.Config()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	klog.V(1).InfoS("Opening Modbus device", "device", c.Device)
	if err := c.Gateway.Open(ctx); err != nil {
		return errors.Wrapf(err, "failed to open %s", c.Device)
	}

	// fatalCh carries errors that must stop the bridge
	fatalCh := make(chan error, 2)

	var stopServer func(context.Context) error
	if c.Server != nil {
		c.Server.Router = generic.Default()
		stopServer, err = web.NewServer(c.Server, c.Manager).Serve(fatalCh)
		if err != nil {
			_ = c.Manager.Shutdown(ctx)
			return err
		}
	}

	mqttDone := make(chan struct{})
	if c.Broker != nil {
		go func() {
			defer close(mqttDone)
			if err := c.Broker.Run(ctx); err != nil {
				fatalCh <- errors.Wrap(err, "MQTT publishing failed too many times in a row")
			}
		}()
	} else {
		close(mqttDone)
	}

	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-exitCh:
		klog.V(1).InfoS("Shutting down", "signal", sig)
	case runErr = <-fatalCh:
		klog.ErrorS(runErr, "Shutting down")
	}
	cancel()
	<-mqttDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), o.Wait)
	defer shutdownCancel()

	var errs []error
	if stopServer != nil {
		if err := stopServer(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Manager.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := utilserrors.NewAggregate(errs); err != nil {
		klog.ErrorS(err, "Failed to shut down cleanly")
	}
	return runErr
}
