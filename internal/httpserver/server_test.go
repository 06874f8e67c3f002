package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/assets"
	"github.com/robalobadob/gamecentr/internal/achievement"
	"github.com/robalobadob/gamecentr/internal/auth"
	"github.com/robalobadob/gamecentr/internal/catalog"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/db"
	"github.com/robalobadob/gamecentr/internal/events"
	"github.com/robalobadob/gamecentr/internal/round"
	"github.com/robalobadob/gamecentr/internal/score"
	"github.com/robalobadob/gamecentr/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(d, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewRealClock()
	l := zerolog.Nop()

	scores := score.NewStore(d, clock)
	users := auth.NewUsers(d, clock)
	a := auth.New(auth.NewTokens("test-secret", time.Hour, clock), users, auth.Options{})
	srv := New(Options{DailySalt: "test-salt"}, Deps{
		Sessions:     store.NewMemoryStore(clock),
		Scores:       scores,
		Recorder:     score.NewLocalSubmitter(scores, cat, events.NewLogPublisher(l), l),
		Achievements: achievement.NewService(cat, achievement.NewStore(d, clock), scores, users, clock, l),
		Auth:         a,
		Daily:        daily.NewStore(d),
		Clock:        clock,
		Log:          l,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// apiRes is the response envelope with the payload left raw.
type apiRes struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func call(t *testing.T, c *http.Client, method, url string, body any) (int, apiRes) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var out apiRes
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, url, err)
	}
	return res.StatusCode, out
}

func data[T any](t *testing.T, r apiRes) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		t.Fatalf("data: %v (%s)", err, r.Data)
	}
	return v
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type playData struct {
	Session struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
		Daily string `json:"daily"`
	} `json:"session"`
	View    round.Snapshot `json:"view"`
	Verdict round.Verdict  `json:"verdict"`
}

func signup(t *testing.T, ts *httptest.Server, c *http.Client, name string) auth.User {
	t.Helper()
	code, res := call(t, c, "POST", ts.URL+"/auth/signup", map[string]string{"username": name, "password": "password1"})
	if code != http.StatusCreated || !res.Success {
		t.Fatalf("signup: %d %+v", code, res)
	}
	return data[auth.User](t, res)
}

// startGuess starts a number guess session and returns its id.
func startGuess(t *testing.T, ts *httptest.Server, c *http.Client, query string) playData {
	t.Helper()
	code, res := call(t, c, "POST", ts.URL+"/play/guess"+query, nil)
	if code != http.StatusCreated {
		t.Fatalf("start: %d %+v", code, res)
	}
	return data[playData](t, res)
}

// solveGuess plays a session to the end by binary search.
func solveGuess(t *testing.T, ts *httptest.Server, c *http.Client, id string) round.Snapshot {
	t.Helper()
	lo, hi := 1, 99
	for i := 0; i < 20; i++ {
		mid := (lo + hi) / 2
		code, res := call(t, c, "POST", ts.URL+"/play/"+id+"/input", map[string]string{"key": strconv.Itoa(mid)})
		if code != http.StatusOK {
			t.Fatalf("input: %d %+v", code, res)
		}
		p := data[playData](t, res)
		if p.View.State.Terminal() {
			return p.View
		}
		switch {
		case strings.Contains(p.Verdict.Message, "high"):
			hi = mid - 1
		case strings.Contains(p.Verdict.Message, "low"):
			lo = mid + 1
		}
	}
	t.Fatal("guess game did not finish")
	return round.Snapshot{}
}

func TestHealthAndGameTypes(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	if code, res := call(t, c, "GET", ts.URL+"/health", nil); code != 200 || !res.Success {
		t.Fatalf("health: %d %+v", code, res)
	}
	_, res := call(t, c, "GET", ts.URL+"/game-types", nil)
	if gts := data[[]catalog.GameType](t, res); len(gts) != 10 {
		t.Fatalf("game types = %d", len(gts))
	}
	code, res := call(t, c, "GET", ts.URL+"/game-types/nope", nil)
	if code != http.StatusNotFound || res.Success {
		t.Fatalf("unknown game type: %d %+v", code, res)
	}
	if code, _ := call(t, c, "GET", ts.URL+"/no/such/route", nil); code != http.StatusNotFound {
		t.Fatalf("unknown route: %d", code)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	if code, _ := call(t, c, "GET", ts.URL+"/auth/me", nil); code != http.StatusUnauthorized {
		t.Fatalf("me before signup: %d", code)
	}
	u := signup(t, ts, c, "alice")
	_, res := call(t, c, "GET", ts.URL+"/auth/me", nil)
	if me := data[auth.Identity](t, res); me.ID != u.ID || me.Username != "alice" {
		t.Fatalf("me = %+v", me)
	}
	if code, _ := call(t, newClient(t), "POST", ts.URL+"/auth/signup",
		map[string]string{"username": "ALICE", "password": "password1"}); code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", code)
	}
	if code, _ := call(t, newClient(t), "POST", ts.URL+"/auth/signup",
		map[string]string{"username": "bo", "password": "password1"}); code != http.StatusBadRequest {
		t.Fatalf("short name: %d", code)
	}

	call(t, c, "POST", ts.URL+"/auth/logout", nil)
	if code, _ := call(t, c, "GET", ts.URL+"/auth/me", nil); code != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", code)
	}
	if code, _ := call(t, c, "POST", ts.URL+"/auth/login",
		map[string]string{"username": "alice", "password": "wrong-pass"}); code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", code)
	}
	if code, _ := call(t, c, "POST", ts.URL+"/auth/login",
		map[string]string{"username": "alice", "password": "password1"}); code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}
	if code, _ := call(t, c, "GET", ts.URL+"/stats/me", nil); code != http.StatusOK {
		t.Fatalf("stats after login: %d", code)
	}
}

func TestPlayGuessRecordsScoreAndAchievements(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	u := signup(t, ts, c, "alice")

	p := startGuess(t, ts, c, "")
	if p.Session.Owner != u.ID || p.View.State != round.StateAwaitingInput {
		t.Fatalf("start = %+v", p)
	}
	final := solveGuess(t, ts, c, p.Session.ID)
	if final.State != round.StateWon {
		t.Fatalf("final state = %s", final.State)
	}

	eventually(t, "score recorded", func() bool {
		_, res := call(t, c, "GET", ts.URL+"/games/mine", nil)
		return len(data[[]score.Score](t, res)) == 1
	})
	eventually(t, "stats updated", func() bool {
		_, res := call(t, c, "GET", ts.URL+"/stats/me", nil)
		st := data[struct{ GamesPlayed, Wins, Streak int }](t, res)
		return st.GamesPlayed == 1 && st.Wins == 1 && st.Streak == 1
	})
	eventually(t, "binary_search unlocked", func() bool {
		_, res := call(t, c, "GET", ts.URL+"/achievement/user/"+u.ID+"?game=guess", nil)
		for _, a := range data[[]achievement.Status](t, res) {
			if a.Code == "binary_search" {
				return a.IsUnlocked
			}
		}
		return false
	})

	// Terminal sessions reject input until restarted.
	code, _ := call(t, c, "POST", ts.URL+"/play/"+p.Session.ID+"/input", map[string]string{"key": "50"})
	if code != http.StatusConflict {
		t.Fatalf("input after finish: %d", code)
	}
	code, res := call(t, c, "POST", ts.URL+"/play/"+p.Session.ID+"/restart", nil)
	if code != http.StatusOK || data[playData](t, res).View.Attempt != 2 {
		t.Fatalf("restart: %d %+v", code, res)
	}
}

func TestSessionOwnership(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := newClient(t), newClient(t)

	p := startGuess(t, ts, alice, "")
	id := p.Session.ID
	if code, _ := call(t, bob, "POST", ts.URL+"/play/"+id+"/input", map[string]string{"key": "5"}); code != http.StatusForbidden {
		t.Fatalf("foreign input: %d", code)
	}
	if code, _ := call(t, bob, "GET", ts.URL+"/play/"+id, nil); code != http.StatusOK {
		t.Fatalf("observer view: %d", code)
	}
	code, res := call(t, alice, "POST", ts.URL+"/play/"+id+"/input", map[string]string{"key": "abc"})
	if rejected := data[playData](t, res); code != http.StatusOK || rejected.Verdict.Outcome != round.Invalid ||
		rejected.Verdict.Message == "" || len(rejected.View.Input) != 0 || rejected.View.Mistakes != 0 {
		t.Fatalf("rejected input: %d %+v", code, rejected)
	}
	if code, _ := call(t, alice, "DELETE", ts.URL+"/play/"+id, nil); code != http.StatusOK {
		t.Fatalf("close: %d", code)
	}
	if code, _ := call(t, alice, "GET", ts.URL+"/play/"+id, nil); code != http.StatusNotFound {
		t.Fatalf("closed session: %d", code)
	}
	if code, _ := call(t, alice, "POST", ts.URL+"/play/tetris", nil); code != http.StatusNotFound {
		t.Fatalf("unknown game: %d", code)
	}
}

func TestDailyChallengeOneAttempt(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	p := startGuess(t, ts, c, "?daily=1")
	if p.Session.Daily == "" {
		t.Fatal("daily session has no date")
	}
	if code, _ := call(t, c, "POST", ts.URL+"/play/"+p.Session.ID+"/restart", nil); code != http.StatusConflict {
		t.Fatalf("daily restart: %d", code)
	}
	solveGuess(t, ts, c, p.Session.ID)

	var lb lbRes
	eventually(t, "daily result", func() bool {
		_, res := call(t, c, "GET", ts.URL+"/daily/guess/leaderboard", nil)
		lb = data[lbRes](t, res)
		return len(lb.Top) == 1
	})
	if lb.Top[0].UserID != p.Session.Owner || lb.Top[0].Value != 1 {
		t.Fatalf("daily leaderboard = %+v", lb)
	}
	if code, _ := call(t, c, "POST", ts.URL+"/play/guess?daily=1", nil); code != http.StatusConflict {
		t.Fatalf("second daily attempt: %d", code)
	}
	if code, _ := call(t, c, "GET", ts.URL+"/daily/guess/leaderboard?date=yesterday", nil); code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", code)
	}
	if code, _ := call(t, c, "GET", ts.URL+"/daily/tetris/leaderboard", nil); code != http.StatusNotFound {
		t.Fatalf("unknown daily game: %d", code)
	}
}

func TestDailyAttemptCountsFromStart(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	p := startGuess(t, ts, c, "?daily=1")
	_, res := call(t, c, "GET", ts.URL+"/daily/guess/status", nil)
	if !data[dailyStatusRes](t, res).Played {
		t.Fatal("started daily attempt not recorded")
	}
	if code, _ := call(t, c, "DELETE", ts.URL+"/play/"+p.Session.ID, nil); code != http.StatusOK {
		t.Fatalf("close: %d", code)
	}
	if code, _ := call(t, c, "POST", ts.URL+"/play/guess?daily=1", nil); code != http.StatusConflict {
		t.Fatalf("daily after close: %d", code)
	}
	_, res = call(t, c, "GET", ts.URL+"/daily/guess/leaderboard", nil)
	if lb := data[lbRes](t, res); len(lb.Top) != 0 {
		t.Fatalf("abandoned attempt on leaderboard: %+v", lb.Top)
	}
	// Other games and non-daily play are unaffected.
	startGuess(t, ts, c, "")
	if code, _ := call(t, c, "POST", ts.URL+"/play/hangman?daily=1", nil); code != http.StatusCreated {
		t.Fatalf("daily hangman: %d", code)
	}
}

func TestScoreAPI(t *testing.T) {
	ts := newTestServer(t)
	anon := newClient(t)

	code, res := call(t, anon, "POST", ts.URL+"/game/hangman/score", map[string]any{"value": 80, "text": "Solved", "owner": "player-1"})
	if code != http.StatusCreated {
		t.Fatalf("record: %d %+v", code, res)
	}
	sc := data[score.Score](t, res)
	if sc.Owner != "player-1" || sc.Game != "hangman" || sc.ID == "" {
		t.Fatalf("score = %+v", sc)
	}
	if code, _ := call(t, anon, "POST", ts.URL+"/score", map[string]any{"value": 1, "game": "tetris"}); code != http.StatusBadRequest {
		t.Fatalf("unknown game: %d", code)
	}

	_, res = call(t, anon, "GET", ts.URL+"/game/hangman/leaderboard?timeFrame=daily", nil)
	lb := data[leaderboardRes](t, res)
	if len(lb.Leaderboard) != 1 || lb.Leaderboard[0].Score != 80 || lb.Leaderboard[0].User.ID != "player-1" ||
		lb.Stats.TotalPlays != 1 || lb.GameInfo.Code != "hangman" {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if code, _ := call(t, anon, "GET", ts.URL+"/game/hangman/leaderboard?timeFrame=yearly", nil); code != http.StatusBadRequest {
		t.Fatalf("bad time frame: %d", code)
	}
	if code, _ := call(t, anon, "GET", ts.URL+"/game/tetris/leaderboard", nil); code != http.StatusNotFound {
		t.Fatalf("unknown leaderboard: %d", code)
	}

	comment := map[string]string{"scoreId": sc.ID, "text": "nice"}
	if code, _ := call(t, anon, "POST", ts.URL+"/score/addComment", comment); code != http.StatusUnauthorized {
		t.Fatalf("anonymous comment: %d", code)
	}
	bob := newClient(t)
	signup(t, ts, bob, "bob")
	if code, _ := call(t, bob, "POST", ts.URL+"/score/addComment", comment); code != http.StatusCreated {
		t.Fatalf("comment: %d", code)
	}
	if code, _ := call(t, bob, "POST", ts.URL+"/game/pong/score/"+sc.ID+"/comment", comment); code != http.StatusNotFound {
		t.Fatalf("comment on wrong game: %d", code)
	}
	_, res = call(t, anon, "GET", ts.URL+"/score/"+sc.ID, nil)
	if got := data[score.Score](t, res); len(got.Comments) != 1 || got.Comments[0].Username != "bob" {
		t.Fatalf("comments = %+v", got.Comments)
	}

	_, res = call(t, anon, "GET", ts.URL+"/game/hangman/user/player-1/scores", nil)
	if list := data[[]score.Score](t, res); len(list) != 1 {
		t.Fatalf("user scores = %d", len(list))
	}
	_, res = call(t, anon, "GET", ts.URL+"/user/player-1/stats", nil)
	if st := data[userStatsRes](t, res); st.Overall.TotalPlays != 1 {
		t.Fatalf("user stats = %+v", st)
	}
	_, res = call(t, anon, "GET", ts.URL+"/game/leaderboard", nil)
	if g := data[[]score.GlobalEntry](t, res); len(g) != 1 || g[0].UserID != "player-1" {
		t.Fatalf("global = %+v", g)
	}
}

func TestSignupClaimsAnonymousScores(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	if code, _ := call(t, c, "POST", ts.URL+"/game/quickmath/score", map[string]any{"value": 7}); code != http.StatusCreated {
		t.Fatalf("anon record: %d", code)
	}
	u := signup(t, ts, c, "carol")
	_, res := call(t, c, "GET", ts.URL+"/games/mine", nil)
	list := data[[]score.Score](t, res)
	if len(list) != 1 || list[0].Owner != u.ID || list[0].Username != "carol" {
		t.Fatalf("claimed = %+v", list)
	}
}

func TestAchievementAPI(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	body := map[string]any{"userId": "u1", "gameCode": "guess", "progress": map[string]any{"guessCount": 1, "correct": true}}
	_, res := call(t, c, "POST", ts.URL+"/achievement/check-progress", body)
	got := data[checkRes](t, res)
	found := false
	for _, a := range got.Unlocked {
		found = found || a.Code == "lucky_guess"
	}
	if !found {
		t.Fatalf("unlocked = %+v", got.Unlocked)
	}
	_, res = call(t, c, "POST", ts.URL+"/achievement/check-progress", body)
	if again := data[checkRes](t, res); len(again.Unlocked) != 0 {
		t.Fatalf("second check unlocked %+v", again.Unlocked)
	}
	body["gameCode"] = "tetris"
	if code, _ := call(t, c, "POST", ts.URL+"/achievement/check-progress", body); code != http.StatusBadRequest {
		t.Fatalf("unknown game: %d", code)
	}

	award := map[string]string{"userId": "u1", "achievementCode": "pattern_master"}
	_, res = call(t, c, "POST", ts.URL+"/achievement/award", award)
	if a := data[awardRes](t, res); !a.NewlyAwarded || !a.Achievement.IsUnlocked {
		t.Fatalf("award = %+v", a)
	}
	_, res = call(t, c, "POST", ts.URL+"/achievement/award", award)
	if a := data[awardRes](t, res); a.NewlyAwarded {
		t.Fatal("award should be idempotent")
	}
	award["achievementCode"] = "nope"
	if code, _ := call(t, c, "POST", ts.URL+"/achievement/award", award); code != http.StatusNotFound {
		t.Fatalf("unknown achievement: %d", code)
	}
	if code, _ := call(t, c, "POST", ts.URL+"/achievement/award", map[string]string{"achievementCode": "pattern_master"}); code != http.StatusBadRequest {
		t.Fatalf("award without user: %d", code)
	}
}

func TestWatchStreamsViews(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	p := startGuess(t, ts, c, "")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/play/" + p.Session.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first round.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Game != "guess" || len(first.Input) != 0 {
		t.Fatalf("first view = %+v", first)
	}
	call(t, c, "POST", ts.URL+"/play/"+p.Session.ID+"/input", map[string]string{"key": "50"})
	for {
		var v round.Snapshot
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(v.Input) == 1 || v.State.Terminal() {
			break
		}
	}

	if _, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/play/missing/ws", nil); err == nil {
		t.Fatal("dial to a missing session should fail")
	}
}
