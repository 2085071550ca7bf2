package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// agentPrelude is shared by the mock agents below. It reads the setup message
// and exposes nextTurn, which blocks for the next state view.
const agentPrelude = `package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var _ = time.Second

type entity struct {
	id   int
	kind string
	args [5]int
}

var in = bufio.NewScanner(os.Stdin)

func line() string {
	if !in.Scan() {
		os.Exit(0)
	}
	return in.Text()
}

func ints(s string) []int {
	var out []int
	for _, f := range strings.Fields(s) {
		v, _ := strconv.Atoi(f)
		out = append(out, v)
	}
	return out
}

func readSetup() (factories int) {
	h := ints(line())
	for i := 0; i < h[1]; i++ {
		line()
	}
	return h[0]
}

func nextTurn() []entity {
	n := ints(line())[0]
	es := make([]entity, n)
	for i := range es {
		f := strings.Fields(line())
		es[i].id, _ = strconv.Atoi(f[0])
		es[i].kind = f[1]
		for j := 0; j < 5; j++ {
			es[i].args[j], _ = strconv.Atoi(f[j+2])
		}
	}
	return es
}

func reply(s string) { fmt.Println(s) }
`

// WaitAgent answers WAIT every turn.
const WaitAgent = agentPrelude + `
func main() {
	readSetup()
	for {
		nextTurn()
		reply("WAIT")
	}
}
`

// RushAgent sends every unit of every owned factory to the first enemy
// factory it sees, and waits when there is none.
const RushAgent = agentPrelude + `
func main() {
	readSetup()
	for {
		es := nextTurn()
		target := -1
		for _, e := range es {
			if e.kind == "FACTORY" && e.args[0] == -1 {
				target = e.id
				break
			}
		}
		var cmds []string
		for _, e := range es {
			if e.kind == "FACTORY" && e.args[0] == 1 && target >= 0 && e.args[1] > 0 {
				cmds = append(cmds, fmt.Sprintf("MOVE %d %d %d", e.id, target, e.args[1]))
			}
		}
		if len(cmds) == 0 {
			reply("WAIT")
			continue
		}
		reply(strings.Join(cmds, ";"))
	}
}
`

// SelfMoveAgent orders a move from a factory to itself on its first turn.
const SelfMoveAgent = agentPrelude + `
func main() {
	readSetup()
	for {
		nextTurn()
		reply("MOVE 0 0 5")
	}
}
`

// GibberishAgent answers with an unknown command keyword.
const GibberishAgent = agentPrelude + `
func main() {
	readSetup()
	for {
		nextTurn()
		reply("ATTACK everything")
	}
}
`

// SilentAgent reads its input but never answers.
const SilentAgent = agentPrelude + `
func main() {
	readSetup()
	for {
		nextTurn()
	}
}
`

// ChattyAgent waits every turn and writes a diagnostic line to stderr.
const ChattyAgent = agentPrelude + `
func main() {
	readSetup()
	for turn := 1; ; turn++ {
		nextTurn()
		fmt.Fprintf(os.Stderr, "turn %d\n", turn)
		reply("WAIT")
	}
}
`

// EchoAgent writes back every line it reads, prefixed with "echo ".
const EchoAgent = `package main

import (
	"bufio"
	"fmt"
	"os"
)

func main() {
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		fmt.Println("echo " + in.Text())
		fmt.Fprintln(os.Stderr, "got "+in.Text())
	}
}
`

// CrashAgent exits as soon as it reads its first line.
const CrashAgent = `package main

import (
	"bufio"
	"os"
)

func main() {
	bufio.NewScanner(os.Stdin).Scan()
	os.Exit(3)
}
`

// StubbornAgent ignores SIGTERM and never exits on its own.
const StubbornAgent = `package main

import (
	"os/signal"
	"syscall"
	"time"
)

func main() {
	signal.Ignore(syscall.SIGTERM)
	for {
		time.Sleep(time.Hour)
	}
}
`

// BuildAgent compiles a Go source string into a temporary executable and
// returns its path.
func BuildAgent(t *testing.T, source string) string {
	t.Helper()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.go")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatalf("write mock agent source: %v", err)
	}

	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	binPath := filepath.Join(dir, "mock_agent"+ext)

	cmd := exec.Command("go", "build", "-o", binPath, srcPath)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOOS="+runtime.GOOS, "GOARCH="+runtime.GOARCH)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build mock agent: %v\n%s", err, strings.TrimSpace(string(out)))
	}
	return binPath
}
