package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

var errEndOfInput = errors.New("end of input")

// prompts lists, per interactive command, the questions whose answers become
// the command's arguments.
var prompts = map[string][]string{
	"comp":    {"Enter source file name:", "Enter archive name:"},
	"decomp":  {"Enter archive name:", "Enter file name:"},
	"size":    {"Enter file name:"},
	"equal":   {"Enter first file name:", "Enter second file name:"},
	"compare": {"Enter file name:"},
	"about":   nil,
}

// interactive reads commands and their arguments line by line until "exit"
// or the end of input. A failing command is reported and the loop goes on.
func (a *app) interactive() error {
	scanner := bufio.NewScanner(a.stdin)
	readLine := func(prompt string) (string, error) {
		fmt.Fprintln(a.stdout, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errEndOfInput
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	for {
		command, err := readLine("Enter command (comp, decomp, size, equal, compare, about, exit):")
		if errors.Is(err, errEndOfInput) {
			return nil
		}
		if err != nil {
			return err
		}

		if command == "exit" {
			fmt.Fprintln(a.stdout, "Exiting program.")
			return nil
		}
		questions, ok := prompts[command]
		if !ok {
			fmt.Fprintln(a.stdout, "Invalid command. Please try again.")
			continue
		}

		args := make([]string, 0, len(questions))
		for _, q := range questions {
			answer, err := readLine(q)
			if errors.Is(err, errEndOfInput) {
				return nil
			}
			if err != nil {
				return err
			}
			args = append(args, answer)
		}

		if err := a.dispatch(command, args); err != nil {
			fmt.Fprintln(a.stdout, "Error:", err)
		}
	}
}
