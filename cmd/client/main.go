// cmd/client is the CLI entry-point built with Cobra. It speaks to the
// proxy, never directly to a storage node.
//
// Usage:
//
//	ringctl put mykey "hello world"    --server http://localhost:8000
//	ringctl get mykey                  --server http://localhost:8000
//	ringctl delete mykey               --server http://localhost:8000
//	ringctl cluster add localhost:9001 --server http://localhost:8000
//	ringctl cluster remove localhost:9001 --server http://localhost:8000
//	ringctl cluster status             --server http://localhost:8000
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ringstore/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "ringctl",
		Short: "CLI client for the ring-sharded KV store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8000", "Proxy address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(putCmd(), getCmd(), deleteCmd(), clusterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Put(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			val, err := c.Get(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(val)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"del"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster membership commands",
	}

	addCmd := &cobra.Command{
		Use:   "add <host:port>",
		Short: "Add a storage node to the ring and migrate its share of the keyspace onto it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.AddNode(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("added %q\n", args[0])
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <host:port>",
		Aliases: []string{"rm"},
		Short:   "Evacuate and remove a storage node from the ring",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.RemoveNode(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %q\n", args[0])
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report proxy liveness and current node count",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			st, err := c.Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("status: %s, nodes: %d\n", st.Status, st.NodeCount)
			return nil
		},
	}

	cmd.AddCommand(addCmd, removeCmd, statusCmd)
	return cmd
}
