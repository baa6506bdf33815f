// Package controller coordinates the configuration list and the proxy client.
// This file contains the intents frontends submit to the controller.
package controller

import (
	"context"
	"fmt"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/storage"
)

// SetEnabled sets the desired-run flag.
func (c *Controller) SetEnabled(ctx context.Context, enabled bool) error {
	return c.submit(ctx, "change-enable", func() error {
		next := c.state.Clone()
		next.Enabled = enabled
		c.commit(next, false)
		return nil
	})
}

// SetSelected selects the configuration at index, or none for
// common.NoSelection. Out-of-range indexes are rejected without touching
// the state.
func (c *Controller) SetSelected(ctx context.Context, index int) error {
	return c.submit(ctx, "change-selected", func() error {
		if !c.state.ValidIndex(index) {
			err := &common.ValidationError{
				Field:  "selected index",
				Value:  index,
				Reason: fmt.Sprintf("must be between %d and %d", common.NoSelection, len(c.state.Configs)-1),
			}
			c.reject(err)
			return err
		}
		next := c.state.Clone()
		next.Selected = index
		c.commit(next, true)
		return nil
	})
}

// SetAutoLaunch sets the login auto-start flag and updates the platform
// registration.
func (c *Controller) SetAutoLaunch(ctx context.Context, enabled bool) error {
	return c.submit(ctx, "change-auto-launch", func() error {
		next := c.state.Clone()
		next.AutoLaunch = enabled
		c.state = next
		c.persist()
		c.delegateAutoLaunch(enabled)
		c.publishState()
		return nil
	})
}

// ReplaceConfigs replaces the whole configuration list. When nothing was
// selected the last entry becomes selected; a selection past the end of
// the new list is cleared.
func (c *Controller) ReplaceConfigs(ctx context.Context, configs []storage.ClientConfig) error {
	list := make([]storage.ClientConfig, len(configs))
	for i, cfg := range configs {
		list[i] = cfg.Clone()
	}

	return c.submit(ctx, "update-configs", func() error {
		for i, cfg := range list {
			if err := cfg.Validate(); err != nil {
				err = fmt.Errorf("config %d: %w", i, err)
				c.reject(err)
				return err
			}
		}
		storage.AssignIDs(list)

		next := c.state.Clone()
		next.Configs = list
		c.reconcileSelection(&next)
		c.commit(next, true)
		return nil
	})
}

// ReplaceConfigsSelect replaces the configuration list and the selection in
// one step, so a reorder or removal never runs an entry that was not
// selected. selected must be a valid index into configs or
// common.NoSelection.
func (c *Controller) ReplaceConfigsSelect(ctx context.Context, configs []storage.ClientConfig, selected int) error {
	list := make([]storage.ClientConfig, len(configs))
	for i, cfg := range configs {
		list[i] = cfg.Clone()
	}

	return c.submit(ctx, "update-configs", func() error {
		for i, cfg := range list {
			if err := cfg.Validate(); err != nil {
				err = fmt.Errorf("config %d: %w", i, err)
				c.reject(err)
				return err
			}
		}
		if selected < common.NoSelection || selected >= len(list) {
			err := &common.ValidationError{
				Field:  "selected index",
				Value:  selected,
				Reason: fmt.Sprintf("must be between %d and %d", common.NoSelection, len(list)-1),
			}
			c.reject(err)
			return err
		}
		storage.AssignIDs(list)

		next := c.state.Clone()
		next.Configs = list
		next.Selected = selected
		c.commit(next, true)
		return nil
	})
}

// ReloadState adopts a state edited outside the application.
func (c *Controller) ReloadState(ctx context.Context, state storage.State) error {
	next := state.Clone()
	return c.submit(ctx, "reload-state", func() error {
		c.adopt(next)
		return nil
	})
}

// ReloadFromStore re-reads the store after an external edit and adopts the
// result. Unreadable or empty content is published as an error and the
// current state stays in force.
func (c *Controller) ReloadFromStore(ctx context.Context) error {
	return c.submit(ctx, "reload-state", func() error {
		state, err := storage.Reload(c.store)
		if err != nil {
			common.LogWarn("Controller: keeping current state, external edit unreadable: %v", err)
			c.publish(ErrorEvent{Op: "reload", Err: err})
			return err
		}
		c.adopt(state)
		return nil
	})
}

func (c *Controller) adopt(next storage.State) {
	next.Normalize()
	if next.Equal(c.state) {
		return
	}
	common.LogInfo("Controller: adopting externally edited state")
	autoChanged := next.AutoLaunch != c.state.AutoLaunch
	c.commit(next, true)
	if autoChanged {
		c.delegateAutoLaunch(next.AutoLaunch)
	}
}

// ShowWindow asks the window collaborator to show itself.
func (c *Controller) ShowWindow(ctx context.Context) error {
	return c.submit(ctx, "click", func() error {
		c.publish(SignalEvent{EventType: EventShowWindow})
		return nil
	})
}

func (c *Controller) reconcileSelection(next *storage.State) {
	switch {
	case next.Selected == common.NoSelection && len(next.Configs) > 0:
		next.Selected = len(next.Configs) - 1
		common.LogInfo("Controller: auto-selected configuration %d", next.Selected)
	case next.Selected >= len(next.Configs):
		common.LogInfo("Controller: selected configuration %d removed", next.Selected)
		next.Selected = common.NoSelection
	}
}

func (c *Controller) reject(err error) {
	common.LogWarn("Controller: intent rejected: %v", err)
	c.publish(ErrorEvent{Op: "validate", Err: err})
}
