// internal/browser/dispatch.go
package browser

import (
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// buildTasks maps a decided action onto raw CDP primitives. Kept free of
// session state so the mapping is testable without a browser.
func buildTasks(action schemas.Action, navTimeout time.Duration) (chromedp.Tasks, error) {
	switch action.Type {
	case schemas.ActionClick:
		return chromedp.Tasks{chromedp.MouseClickXY(action.X, action.Y)}, nil

	case schemas.ActionDoubleClick:
		return chromedp.Tasks{chromedp.MouseClickXY(action.X, action.Y, chromedp.ClickCount(2))}, nil

	case schemas.ActionType_:
		if action.Text == "" {
			return nil, fmt.Errorf("type action requires text")
		}
		// InsertText goes straight to the focused element, IME-style, which
		// is robust against key-mapping differences.
		return chromedp.Tasks{input.InsertText(action.Text)}, nil

	case schemas.ActionScroll:
		return chromedp.Tasks{
			input.DispatchMouseEvent(input.MouseWheel, action.X, action.Y).
				WithDeltaX(0).
				WithDeltaY(action.DeltaY),
		}, nil

	case schemas.ActionHotkey:
		if len(action.Keys) == 0 {
			return nil, fmt.Errorf("hotkey action requires at least one key")
		}
		tasks := make(chromedp.Tasks, 0, len(action.Keys))
		for _, key := range action.Keys {
			tasks = append(tasks, chromedp.KeyEvent(key))
		}
		return tasks, nil

	case schemas.ActionNavigate:
		if action.Text == "" {
			return nil, fmt.Errorf("navigate action requires a URL")
		}
		return chromedp.Tasks{
			chromedp.Navigate(action.Text),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}, nil

	case schemas.ActionWait:
		d := time.Duration(action.DurationMS) * time.Millisecond
		if d <= 0 {
			d = time.Second
		}
		if d > navTimeout && navTimeout > 0 {
			d = navTimeout
		}
		return chromedp.Tasks{chromedp.Sleep(d)}, nil

	case schemas.ActionFinish:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}
