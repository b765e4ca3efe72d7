/*
Package cli holds helpers shared by the apigate commands: typed command
errors, signal-aware contexts and request-log output formatting.

Formatting a log listing:

	formatter, err := cli.NewFormatter(cli.FormatText)
	if err != nil {
		return err
	}
	return formatter.FormatLogs(os.Stdout, logs)

Running until interrupted:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
	return srv.Start(ctx)
*/
package cli
