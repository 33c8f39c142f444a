package lua

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/extension"
)

// RunScript executes script against the blocks of rt and streams its output
// to stdout and stderr while it runs. args become the global arg table.
//
// When ctx ends the script is aborted, every device is stopped and ctx's
// error is returned.
func RunScript(
	ctx context.Context,
	rt *extension.Runtime,
	logger *logrus.Logger,
	script string,
	args map[string]string,
	stdout, stderr io.Writer,
) error {
	api := NewBlocksAPI(rt, logger)
	defer api.Close()

	if args == nil {
		args = map[string]string{}
	}
	if err := api.LuaEngine.SetGlobal("arg", args); err != nil {
		return err
	}

	drainer := NewOutputDrainer(ctx, api.OutputChannel(), logger, stdout, stderr)

	logger.WithField("script_size", len(script)).Debug("Starting Lua script execution")
	err := api.ExecuteScript(ctx, script)

	drainer.Cancel()
	drainer.Wait()

	if IsCancelled(err) {
		rt.StopAll()
		logger.Debug("Lua script cancelled, devices stopped")
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	logger.Debug("Lua script execution completed")
	return nil
}
