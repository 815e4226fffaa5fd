// Package main provides the Club 100 control CLI.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("clubctl", "Club 100 game control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8000").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// search command
	searchCmd   = app.Command("search", "Search Spotify for artists")
	searchQuery = searchCmd.Arg("query", "Artist name to search for").Required().String()
	searchLimit = searchCmd.Flag("limit", "Maximum results").Default("10").Int()

	// artists command
	artistsCmd = app.Command("artists", "List selected artists").Alias("list")

	// select command
	selectCmd = app.Command("select", "Add an artist to the selection")
	selectID  = selectCmd.Arg("artist-id", "Spotify artist ID").Required().String()

	// remove command
	removeCmd = app.Command("remove", "Remove an artist from the selection")
	removeID  = removeCmd.Arg("artist-id", "Spotify artist ID").Required().String()

	// program command
	programCmd   = app.Command("program", "Show the built program")
	programBuild = programCmd.Flag("build", "Build the program from the selection").Bool()

	// devices command
	devicesCmd = app.Command("devices", "List playback devices")

	// start command
	startCmd    = app.Command("start", "Start the game")
	startMode   = startCmd.Flag("mode", "Game mode (default: server's default mode)").String()
	startDevice = startCmd.Flag("device", "Playback device name or ID").String()

	pauseCmd  = app.Command("pause", "Pause the game")
	resumeCmd = app.Command("resume", "Resume the game")
	resetCmd  = app.Command("reset", "Reset the game")

	// status command
	statusCmd = app.Command("status", "Get game status")

	// watch command
	watchCmd = app.Command("watch", "Follow game events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case searchCmd.FullCommand():
		search(*searchQuery, *searchLimit)
	case artistsCmd.FullCommand():
		listArtists()
	case selectCmd.FullCommand():
		selectArtist(*selectID)
	case removeCmd.FullCommand():
		removeArtist(*removeID)
	case programCmd.FullCommand():
		program(*programBuild)
	case devicesCmd.FullCommand():
		devices()
	case startCmd.FullCommand():
		start(*startMode, *startDevice)
	case pauseCmd.FullCommand():
		control("pause", "Game paused")
	case resumeCmd.FullCommand():
		control("resume", "Game resumed")
	case resetCmd.FullCommand():
		control("reset", "Game reset")
	case statusCmd.FullCommand():
		status()
	case watchCmd.FullCommand():
		watch()
	}
}

type artistInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type trackInfo struct {
	URI        string `json:"uri"`
	Name       string `json:"name"`
	ArtistName string `json:"artist_name"`
	DurationMs int64  `json:"duration_ms"`
	OffsetMs   int64  `json:"offset_ms"`
}

type statusInfo struct {
	Phase         string     `json:"phase"`
	Mode          string     `json:"mode"`
	Round         int        `json:"round"`
	Rounds        int        `json:"rounds"`
	RemainingMs   int64      `json:"remaining_ms"`
	DeviceID      string     `json:"device_id"`
	SelectedCount int        `json:"selected_count"`
	ProgramBuilt  bool       `json:"program_built"`
	CurrentTrack  *trackInfo `json:"current_track"`
}

// request performs one API call and decodes the JSON response into out
// (when out is non-nil). Non-2xx responses print the server message and
// exit.
func request(method, path string, body, out any) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if *token != "" {
		req.Header.Set("X-Admin-Token", *token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			fmt.Printf("Error: %s\n", e.Message)
		} else {
			fmt.Printf("Error: %s\n", resp.Status)
		}
		os.Exit(1)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func search(query string, limit int) {
	var resp struct {
		Artists []artistInfo `json:"artists"`
	}
	path := "/api/search/artists?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	request(http.MethodGet, path, nil, &resp)

	fmt.Printf("Artists (%d):\n", len(resp.Artists))
	for _, a := range resp.Artists {
		fmt.Printf("  %s: %s\n", a.ID, a.Name)
	}
}

func listArtists() {
	var resp struct {
		Artists  []artistInfo `json:"artists"`
		Required int          `json:"required"`
	}
	request(http.MethodGet, "/api/session/artists", nil, &resp)

	fmt.Printf("Selected artists (%d/%d):\n", len(resp.Artists), resp.Required)
	for i, a := range resp.Artists {
		fmt.Printf("  %2d. %s (%s)\n", i+1, a.Name, a.ID)
	}
}

func selectArtist(id string) {
	var a artistInfo
	request(http.MethodPost, "/api/session/artists", map[string]string{"id": id}, &a)
	fmt.Printf("Selected: %s (%s)\n", a.Name, a.ID)
}

func removeArtist(id string) {
	request(http.MethodDelete, "/api/session/artists/"+url.PathEscape(id), nil, nil)
	fmt.Printf("Removed: %s\n", id)
}

func program(build bool) {
	var resp struct {
		Artists    []artistInfo   `json:"artists"`
		Tracks     [][]*trackInfo `json:"tracks"`
		Rounds     int            `json:"rounds"`
		TrackCount int            `json:"track_count"`
	}
	if build {
		request(http.MethodPost, "/api/session/program", nil, &resp)
		fmt.Println("Program built")
	} else {
		request(http.MethodGet, "/api/session/program", nil, &resp)
	}

	fmt.Printf("\n=== PROGRAM (%d rounds, %d tracks) ===\n", resp.Rounds, resp.TrackCount)
	for ai, a := range resp.Artists {
		fmt.Printf("\n%s:\n", a.Name)
		for rank, t := range resp.Tracks[ai] {
			if t == nil {
				fmt.Printf("  %2d. (no track)\n", rank+1)
				continue
			}
			fmt.Printf("  %2d. %s (start at %ds)\n", rank+1, t.Name, t.OffsetMs/1000)
		}
	}
}

func devices() {
	var resp struct {
		Devices []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Type   string `json:"type"`
			Active bool   `json:"active"`
		} `json:"devices"`
	}
	request(http.MethodGet, "/api/devices", nil, &resp)

	fmt.Printf("Devices (%d):\n", len(resp.Devices))
	for _, d := range resp.Devices {
		marker := ""
		if d.Active {
			marker = " (active)"
		}
		fmt.Printf("  %s: %s [%s]%s\n", d.ID, d.Name, d.Type, marker)
	}
}

func start(mode, device string) {
	var st statusInfo
	request(http.MethodPost, "/api/game/start", map[string]string{"mode": mode, "device": device}, &st)
	fmt.Printf("Game started: mode=%s rounds=%d device=%s\n", st.Mode, st.Rounds, st.DeviceID)
}

func control(action, message string) {
	var st statusInfo
	request(http.MethodPost, "/api/game/"+action, nil, &st)
	fmt.Printf("%s (round %d/%d)\n", message, st.Round, st.Rounds)
}

func status() {
	var st statusInfo
	request(http.MethodGet, "/api/game/status", nil, &st)

	fmt.Println("\n=== GAME STATUS ===")
	fmt.Printf("Phase: %s\n", st.Phase)
	if st.Mode != "" {
		fmt.Printf("Mode: %s\n", st.Mode)
	}
	fmt.Printf("Round: %d/%d\n", st.Round, st.Rounds)
	if st.Phase == "running" {
		fmt.Printf("Next round in: %ds\n", st.RemainingMs/1000)
	}
	fmt.Printf("Artists selected: %d\n", st.SelectedCount)
	fmt.Printf("Program built: %v\n", st.ProgramBuilt)
	if st.CurrentTrack != nil {
		fmt.Printf("\nCurrently playing:\n")
		fmt.Printf("  %s - %s\n", st.CurrentTrack.ArtistName, st.CurrentTrack.Name)
	}
	fmt.Println()
}

// watch follows the SSE stream and prints each event.
func watch() {
	resp, err := http.Get(*server + "/api/game/events")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: %s\n", resp.Status)
		os.Exit(1)
	}

	fmt.Println("Watching game events (Ctrl-C to stop)...")
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev struct {
			Type   string     `json:"type"`
			Phase  string     `json:"phase"`
			Round  int        `json:"round"`
			Rounds int        `json:"rounds"`
			Track  *trackInfo `json:"track"`
			Error  string     `json:"error"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "round_advanced":
			if ev.Track != nil {
				fmt.Printf("Round %d/%d: %s - %s (start at %ds)\n",
					ev.Round, ev.Rounds, ev.Track.ArtistName, ev.Track.Name, ev.Track.OffsetMs/1000)
			} else {
				fmt.Printf("Round %d/%d: no track for this slot\n", ev.Round, ev.Rounds)
			}
		case "phase_changed":
			fmt.Printf("Phase: %s (round %d)\n", ev.Phase, ev.Round)
		case "finished":
			fmt.Printf("Game finished after round %d\n", ev.Round)
		case "playback_error":
			fmt.Printf("Playback error in round %d: %s\n", ev.Round, ev.Error)
		case "initial_state":
			fmt.Printf("Connected: phase=%s round=%d\n", ev.Phase, ev.Round)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
}
