package main

import (
	"strconv"
	"strings"
)

// portFromAddr extracts the numeric port from a "host:port" or ":port"
// listen address, for naming this node's WAL file (store.Open takes a bare
// port number, per spec.md's wal_<port>.log convention).
func portFromAddr(addr string) int {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return 0
	}
	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil {
		return 0
	}
	return port
}

// canonAddr turns a bare listen address like ":9001" into a host:port form
// suitable for use as this node's identity in metrics labels and ring
// entries, matching the loopback convention used everywhere else.
func canonAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}
