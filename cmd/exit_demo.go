package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exitDemoTasks int

var exitDemoCmd = &cobra.Command{
	Use:   "exit-demo",
	Short: "Spawn never-ending tasks and exit without joining them",
	Long: `Spawn tasks that block forever, then return. The process exits while the
tasks are still running because spawned threads are detached.`,
	Args: cobra.NoArgs,
	RunE: runExitDemo,
}

func init() {
	rootCmd.AddCommand(exitDemoCmd)
	exitDemoCmd.Flags().IntVarP(&exitDemoTasks, "tasks", "n", 4, "Number of blocking tasks")
}

func runExitDemo(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		return err
	}
	rt, err := newRuntime(env)
	if err != nil {
		return err
	}
	defer rt.Close()

	started := make(chan struct{}, exitDemoTasks)
	for i := 0; i < exitDemoTasks; i++ {
		err := rt.launcher.Go(func() {
			started <- struct{}{}
			select {}
		})
		if err != nil {
			return err
		}
	}

	timeout := time.After(5 * time.Second)
	for i := 0; i < exitDemoTasks; i++ {
		select {
		case <-started:
		case <-timeout:
			return fmt.Errorf("only %d of %d tasks started", i, exitDemoTasks)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d tasks running on %d threads; exiting without join\n",
		rt.launcher.Stats().Running, rt.launcher.Budget().Active())
	return nil
}
