package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pterm/pterm"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// HumanPrinter prints human-readable output, to stdout unless Out is set.
type HumanPrinter struct {
	Out io.Writer
}

// SettingsResult lists effective settings.
type SettingsResult struct {
	Values map[string]string
}

// Print renders human output.
func (p HumanPrinter) Print(v any) error {
	w := writerOr(p.Out)
	switch data := v.(type) {
	case core.NodesResult:
		return printNodes(w, data)
	case core.RouteResult:
		return printRoute(w, data)
	case nav.Screen:
		return printScreen(w, data)
	case core.HistoryResult:
		return printHistory(w, data)
	case SettingsResult:
		return printSettings(w, data)
	case []string:
		for _, line := range data {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
}

func printNodes(w io.Writer, result core.NodesResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tKIND\tNODE_ID"); err != nil {
		return err
	}
	for _, node := range result.Nodes {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", node.Name, node.Kind, node.NodeID)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printRoute(w io.Writer, result core.RouteResult) error {
	reply := result.Reply
	for _, msg := range reply.Messages {
		if _, err := fmt.Fprintln(w, formatMessage(msg)); err != nil {
			return err
		}
	}
	if reply.Played != nil {
		_, err := fmt.Fprintln(w, formatPlayed(*reply.Played))
		return err
	}
	if reply.Script != "" {
		if _, err := fmt.Fprintln(w, pterm.Info.Sprint("host action: "+reply.Script)); err != nil {
			return err
		}
	}
	if reply.Restart {
		if _, err := fmt.Fprintln(w, pterm.Info.Sprint("front end updated, restart required")); err != nil {
			return err
		}
	}
	if reply.Screen.Success {
		return printScreen(w, reply.Screen)
	}
	return nil
}

func printScreen(w io.Writer, screen nav.Screen) error {
	data := pterm.TableData{{"", "#", "TITLE", "TYPE", "PATH", "STATUS"}}
	for idx, item := range screen.Items {
		marker := ""
		if idx == screen.SelectIndex {
			marker = ">"
		}
		data = append(data, []string{
			marker,
			strconv.Itoa(idx),
			item.Title,
			itemType(item),
			item.Action.Path,
			metaString(item.Metadata, "watched"),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	if screen.DefaultSort != "" {
		_, err = fmt.Fprintf(w, "sort: %s (%s)\n", screen.DefaultSort, strings.Join(screen.SortMethods, ", "))
	}
	return err
}

func printHistory(w io.Writer, result core.HistoryResult) error {
	if len(result.Terms) == 0 {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	for idx, term := range result.Terms {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", idx, term); err != nil {
			return err
		}
	}
	return nil
}

func printSettings(w io.Writer, result SettingsResult) error {
	keys := make([]string, 0, len(result.Values))
	for k := range result.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, k := range keys {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", k, result.Values[k]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func itemType(item nav.DisplayItem) string {
	switch {
	case item.Container:
		return "folder"
	case item.Action.Kind == nav.ActionPlay:
		return "video"
	case item.Action.Kind == nav.ActionScript:
		return "action"
	default:
		return string(item.Action.Kind)
	}
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	switch val := meta[key].(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func formatMessage(msg nav.Message) string {
	text := msg.Title
	if msg.Text != "" {
		text += ": " + msg.Text
	}
	switch msg.Priority {
	case "blocking", "highest":
		return pterm.Error.Sprint(text)
	case "high", "medium":
		return pterm.Warning.Sprint(text)
	default:
		return pterm.Info.Sprint(text)
	}
}

func formatPlayed(req nav.PlayRequest) string {
	mode := "play"
	if req.Resume {
		mode = "resume"
	}
	line := fmt.Sprintf("%s episode %d file %d", mode, req.EpisodeID, req.FileID)
	if !req.MarkWatched {
		line += " (not marking watched)"
	}
	return pterm.Success.Sprint(line)
}
