package palette

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/multidesk/internal/ipc"
)

const (
	actionSwitch = "switch:"
	actionWindow = "window:"
)

// Client is the part of the daemon IPC client the switcher needs.
type Client interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	ShowForUser(window uint32, user string, follow bool) (bool, error)
	SwitchUser(user string) error
}

var _ Client = (*ipc.Client)(nil)

// Items builds the picker rows: every user, then every owned window that
// is not on the active desktop. The active user is highlighted and users
// with windows waiting elsewhere are marked urgent.
func Items(status *ipc.StatusData, windows []ipc.WindowInfo) []Item {
	elsewhere := make(map[string]int)
	var away []ipc.WindowInfo
	for _, w := range windows {
		if w.Owner == "" || w.PresentedTo == status.ActiveUser || w.TransientFor != 0 {
			continue
		}
		away = append(away, w)
		elsewhere[w.PresentedTo]++
	}
	sort.SliceStable(away, func(i, j int) bool {
		if away[i].PresentedTo != away[j].PresentedTo {
			return away[i].PresentedTo < away[j].PresentedTo
		}
		return away[i].ID < away[j].ID
	})

	items := []Item{{Label: "Users", IsHeader: true}}
	for _, user := range status.Users {
		label := user
		if n := elsewhere[user]; n > 0 {
			label = fmt.Sprintf("%s (%d)", user, n)
		}
		items = append(items, Item{
			Label:    label,
			Action:   actionSwitch + user,
			Icon:     "system-users",
			IsActive: user == status.ActiveUser,
		})
	}

	if len(away) > 0 {
		items = append(items, Item{Label: "Windows on other desktops", IsHeader: true})
		for _, w := range away {
			title := w.Title
			if title == "" {
				title = w.Class
			}
			items = append(items, Item{
				Label:    fmt.Sprintf("%s: %s", w.PresentedTo, title),
				Action:   actionWindow + ipc.FormatWindowID(w.ID),
				Icon:     strings.ToLower(w.Class),
				Meta:     strings.Join([]string{w.Instance, w.Class, w.Owner}, " "),
				IsUrgent: w.Owner != w.PresentedTo,
			})
		}
	}
	return items
}

// Run shows the picker and performs the chosen action. Choosing a user
// switches to them. Choosing a window brings it to the active desktop;
// with Alt+Return it instead switches to the window's desktop and focuses
// it.
func Run(backend Backend, client Client) error {
	status, err := client.GetStatus()
	if err != nil {
		return err
	}
	windows, err := client.ListWindows()
	if err != nil {
		return err
	}

	message := ""
	if backend.Rich() {
		message = "Enter: switch user or bring window here   Alt+Return: go to window"
	}
	result, err := backend.Show("multidesk ("+status.ActiveUser+")", Items(status, windows), message)
	if err != nil {
		return err
	}
	return execute(client, status, windows, result)
}

func execute(client Client, status *ipc.StatusData, windows []ipc.WindowInfo, result SelectResult) error {
	action := result.Item.Action
	switch {
	case strings.HasPrefix(action, actionSwitch):
		user := strings.TrimPrefix(action, actionSwitch)
		if user == status.ActiveUser {
			return nil
		}
		return client.SwitchUser(user)

	case strings.HasPrefix(action, actionWindow):
		id, err := ipc.ParseWindowID(strings.TrimPrefix(action, actionWindow))
		if err != nil {
			return err
		}
		target := status.ActiveUser
		if result.Alternate() {
			target = presentedTo(windows, id)
			if target == "" {
				return fmt.Errorf("window %s is no longer tracked", ipc.FormatWindowID(id))
			}
		}
		shown, err := client.ShowForUser(id, target, true)
		if err != nil {
			return err
		}
		// Alt+Return targets the user already presenting the window.
		if !shown && target != presentedTo(windows, id) {
			return fmt.Errorf("window %s could not be shown for %s", ipc.FormatWindowID(id), target)
		}
		return nil

	default:
		return nil
	}
}

func presentedTo(windows []ipc.WindowInfo, id uint32) string {
	for _, w := range windows {
		if w.ID == id {
			return w.PresentedTo
		}
	}
	return ""
}
