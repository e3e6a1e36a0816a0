package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// command bundles the client-side handlers. All of them talk to a
// running daemon; there is no local fallback.
type command struct {
	flags *GlobalFlags
}

func (c command) client() *Client {
	return NewClient(c.flags.APIUrl, c.flags.APITimeout)
}

func (c command) Create(f CreateFlags) error {
	if len(f.Command) == 0 {
		return fmt.Errorf("command is required (pass it after --)")
	}
	if err := c.client().Create(f.ID, f.WorkDir, f.Command, f.Autostart); err != nil {
		return err
	}
	fmt.Printf("created %s\n", f.ID)
	return nil
}

func (c command) Start(id string) error {
	if err := c.client().Start(id); err != nil {
		return err
	}
	fmt.Printf("started %s\n", id)
	return nil
}

func (c command) Stop(id string) error {
	if err := c.client().Stop(id); err != nil {
		return err
	}
	fmt.Printf("stopped %s\n", id)
	return nil
}

func (c command) Remove(id string) error {
	if err := c.client().Remove(id); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", id)
	return nil
}

func (c command) List() error {
	infos, err := c.client().List()
	if err != nil {
		return err
	}
	printJSON(infos)
	return nil
}

func (c command) Logs(id string) error {
	text, err := c.client().Logs(id)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func (c command) Send(id, input string) error {
	delivered, err := c.client().Send(id, input)
	if err != nil {
		return err
	}
	if !delivered {
		fmt.Println("input not delivered (console exiting?)")
		return nil
	}
	fmt.Println("sent")
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
