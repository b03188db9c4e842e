// Command dialogscriptc is the reference console driver (spec.md §6 "CLI
// surface"): it loads a compiled module, plays it to completion against
// stdin/stdout, and exits 0 on a normal STOP or non-zero on any uncaught
// error, mirroring original_source's demo/main console runner.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fableforge/dialogscript"
	"github.com/fableforge/dialogscript/bytecode"
	"github.com/fableforge/dialogscript/linedb"
	"github.com/fableforge/dialogscript/render"
)

// consoleHost implements render.Host by printing to stdout and reading
// option selections from stdin.
type consoleHost struct {
	in *bufio.Scanner
	vm *dialogscript.VirtualMachine
}

func (h *consoleHost) Text(text string) error {
	fmt.Println(text)
	return nil
}

// Choices prints every option at its stable index, including disabled ones
// (rendered with a "[locked]" marker rather than dropped, per render.Host's
// index-preserving contract), and rejects a selection that lands on one.
func (h *consoleHost) Choices(choices []string) error {
	options := h.vm.PendingOptions()
	for i, c := range choices {
		if i < len(options) && !options[i].Enabled {
			fmt.Printf("%d) %s [locked]\n", i+1, c)
			continue
		}
		fmt.Printf("%d) %s\n", i+1, c)
	}
	for {
		fmt.Print("> ")
		if !h.in.Scan() {
			return fmt.Errorf("no more input while choosing an option")
		}
		n, err := strconv.Atoi(strings.TrimSpace(h.in.Text()))
		if err != nil || n < 1 || n > len(choices) {
			fmt.Println("please enter a number from the list")
			continue
		}
		if i := n - 1; i < len(options) && !options[i].Enabled {
			fmt.Println("that option is locked")
			continue
		}
		return h.vm.SetSelectedOption(n - 1)
	}
}

func (h *consoleHost) Command(command string) error {
	fmt.Printf("[command: %s]\n", command)
	return nil
}

func (h *consoleHost) NodeChanged(node string) error {
	log.Printf("entering node %s", node)
	return nil
}

func (h *consoleHost) DialogueComplete() error {
	fmt.Println("-- dialogue complete --")
	return nil
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: %s <module-base-path>", os.Args[0])
	}
	base := os.Args[1]

	programFile, err := os.Open(base + ".dialogc")
	if err != nil {
		return fmt.Errorf("open program: %w", err)
	}
	defer programFile.Close()
	program, err := bytecode.GobDecoder{}.Decode(programFile)
	if err != nil {
		return fmt.Errorf("decode program: %w", err)
	}

	metaPath := base + "-Metadata.csv"
	if _, err := os.Stat(metaPath); err != nil {
		metaPath = ""
	}
	db, err := linedb.Load(base+"-Lines.csv", metaPath)
	if err != nil {
		return fmt.Errorf("load line database: %w", err)
	}

	host := &consoleHost{in: bufio.NewScanner(os.Stdin)}
	driver := render.NewDriver(host, db)

	vm := &dialogscript.VirtualMachine{
		Program: program,
		Handler: driver,
		Vars:    dialogscript.MapVariableStorage{},
	}
	host.vm = vm

	return vm.Run("Start")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dialogscriptc:", err)
		os.Exit(1)
	}
}
