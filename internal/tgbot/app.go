package tgbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"wedstrijd-bot/internal/config"
	"wedstrijd-bot/internal/models"
	"wedstrijd-bot/internal/outreach"
	"wedstrijd-bot/internal/roster"
	"wedstrijd-bot/internal/server"
)

const (
	pageSize      = 15
	maxUploadSize = 10 << 20
)

// Roster is what the bot needs from roster.Service.
type Roster interface {
	Create(name, date string) (string, error)
	List() ([]string, error)
	Delete(id string) error
	Get(id string) (models.Competition, error)
	Import(id string, r io.Reader) (roster.ImportReport, error)
	MarkContacted(id string, k models.Key) error
	SetNote(id string, k models.Key, note string) error
}

// Publisher pushes a roster somewhere outside the bot, e.g. a spreadsheet.
type Publisher interface {
	PublishRoster(ctx context.Context, id string, ps []models.Participant) error
	URL() string
}

// sender is the part of *tgbotapi.BotAPI used outside Run.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type App struct {
	cfg  config.Config
	api  *tgbotapi.BotAPI
	bot  sender
	svc  Roster
	out  *outreach.Renderer
	pub  Publisher // nil when publishing is not configured
	http *http.Client

	// per chat: running flow, selected competition, last shown list
	state map[int64]*chatState
}

type chatState struct {
	Flow        string
	Step        int
	Data        map[string]string
	Competition string
	Listed      []string
}

// New connects to Telegram. pub may be nil.
func New(cfg config.Config, svc Roster, out *outreach.Renderer, pub Publisher) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	a := newApp(cfg, b, svc, out, pub)
	a.api = b
	return a, nil
}

func newApp(cfg config.Config, bot sender, svc Roster, out *outreach.Renderer, pub Publisher) *App {
	return &App{
		cfg:   cfg,
		bot:   bot,
		svc:   svc,
		out:   out,
		pub:   pub,
		http:  &http.Client{Timeout: 30 * time.Second},
		state: map[int64]*chatState{},
	}
}

// Run handles updates one at a time until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.api.GetUpdatesChan(u)
	defer a.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			a.handleUpdate(ctx, upd)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	var err error
	var chatID int64
	switch {
	case upd.Message != nil:
		chatID = upd.Message.Chat.ID
		err = a.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.Message != nil {
			chatID = upd.CallbackQuery.Message.Chat.ID
		}
		err = a.handleCallback(ctx, upd.CallbackQuery)
	default:
		return
	}
	if err != nil {
		a.reportError(chatID, err)
	}
}

const goneText = "Deze wedstrijd bestaat niet meer. Kies opnieuw: /wedstrijden"

func (a *App) reportError(chatID int64, err error) {
	if errors.Is(err, roster.ErrCompetitionNotFound) && chatID != 0 {
		st := a.chat(chatID)
		st.Competition = ""
		st.resetFlow()
		_ = a.SendText(chatID, goneText)
		return
	}
	logrus.WithFields(logrus.Fields{"chat": chatID, "error": err}).Error("handle update")
	if chatID != 0 {
		_ = a.SendText(chatID, "⚠️ Er ging iets mis: "+err.Error())
	}
}

// checkSelection clears the chat's competition when it was deleted elsewhere
// (another chat or the roster CLI).
func (a *App) checkSelection(chatID int64, st *chatState) (bool, error) {
	ids, err := a.svc.List()
	if err != nil {
		return false, err
	}
	if slices.Contains(ids, st.Competition) {
		return true, nil
	}
	st.Competition = ""
	st.resetFlow()
	return false, a.SendText(chatID, goneText)
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) send(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) isAdmin(tgID int64) bool {
	return a.cfg.AdminTGIDs[tgID]
}

func (a *App) chat(chatID int64) *chatState {
	st, ok := a.state[chatID]
	if !ok {
		st = &chatState{}
		a.state[chatID] = st
	}
	return st
}

func (st *chatState) resetFlow() {
	st.Flow = ""
	st.Step = 0
	st.Data = nil
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	chatID := m.Chat.ID
	if !a.isAdmin(m.From.ID) {
		return a.SendText(chatID, "Geen toegang.")
	}
	st := a.chat(chatID)

	if m.Document != nil {
		return a.handleDocument(ctx, chatID, m.Document)
	}

	txt := strings.TrimSpace(m.Text)
	switch {
	case strings.HasPrefix(txt, "/start"), strings.HasPrefix(txt, "/menu"):
		st.resetFlow()
		return a.showMenu(chatID)
	case strings.HasPrefix(txt, "/wedstrijden"):
		st.resetFlow()
		return a.showCompetitions(chatID)
	case strings.HasPrefix(txt, "/nieuw"):
		st.resetFlow()
		return a.startCreateFlow(chatID)
	case strings.HasPrefix(txt, "/annuleer"):
		st.resetFlow()
		return a.SendText(chatID, "Geannuleerd.")
	}

	if st.Flow != "" {
		return a.handleFlowInput(chatID, txt, st)
	}
	return a.showMenu(chatID)
}

func (a *App) handleFlowInput(chatID int64, txt string, st *chatState) error {
	switch st.Flow {
	case "create":
		return a.handleCreateFlow(chatID, txt, st)
	case "note":
		return a.handleNoteFlow(chatID, txt, st)
	default:
		st.resetFlow()
		return a.SendText(chatID, "Reset. Gebruik /menu")
	}
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil {
		return nil
	}
	chatID := q.Message.Chat.ID
	data := q.Data

	// ack
	_, _ = a.bot.Request(tgbotapi.NewCallback(q.ID, ""))

	if !a.isAdmin(q.From.ID) {
		return a.SendText(chatID, "Geen toegang.")
	}
	st := a.chat(chatID)

	switch data {
	case "m:menu":
		st.resetFlow()
		return a.showMenu(chatID)
	case "m:new":
		st.resetFlow()
		return a.startCreateFlow(chatID)
	case "m:list":
		st.resetFlow()
		return a.showCompetitions(chatID)
	}

	if n, ok := cbIndex(data, "c:open:"); ok {
		if n >= len(st.Listed) {
			return a.SendText(chatID, "Lijst is verouderd, open /wedstrijden opnieuw.")
		}
		st.Competition = st.Listed[n]
		return a.showCompetition(chatID, st.Competition)
	}
	if n, ok := cbIndex(data, "c:rm:"); ok {
		if n >= len(st.Listed) {
			return a.SendText(chatID, "Lijst is verouderd, open /wedstrijden opnieuw.")
		}
		st.Competition = st.Listed[n]
		data = "c:del"
	}

	// everything below works on the selected competition
	id := st.Competition
	if id == "" {
		return a.SendText(chatID, "Kies eerst een wedstrijd: /wedstrijden")
	}
	if ok, err := a.checkSelection(chatID, st); !ok {
		return err
	}

	switch data {
	case "c:show":
		return a.showCompetition(chatID, id)
	case "c:upload":
		return a.SendText(chatID, "Stuur het CSV-bestand (puntkomma gescheiden) als document in deze chat. Het wordt toegevoegd aan "+id+".")
	case "c:export":
		return a.sendExport(chatID, id)
	case "c:sheet":
		return a.publish(ctx, chatID, id)
	case "c:del":
		return a.send(chatID, "Wedstrijd "+id+" en alle deelnemers verwijderen?", tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Ja, verwijderen", "c:delok"),
				tgbotapi.NewInlineKeyboardButtonData("Nee", "c:show"),
			),
		))
	case "c:delok":
		if err := a.svc.Delete(id); err != nil {
			return err
		}
		st.Competition = ""
		st.Listed = nil
		if err := a.SendText(chatID, "✅ Verwijderd: "+id); err != nil {
			return err
		}
		return a.showCompetitions(chatID)
	}

	if page, ok := cbIndex(data, "p:list:"); ok {
		return a.showParticipants(chatID, id, page)
	}
	if n, ok := cbIndex(data, "p:show:"); ok {
		return a.showParticipant(chatID, id, n)
	}
	if n, ok := cbIndex(data, "p:contact:"); ok {
		return a.markContacted(chatID, id, n)
	}
	if n, ok := cbIndex(data, "p:note:"); ok {
		return a.startNoteFlow(chatID, id, n, st)
	}
	if n, ok := cbIndex(data, "p:msg:"); ok {
		return a.sendOutreach(chatID, id, n)
	}
	return nil
}

// cbIndex parses callbacks of the form prefix + non-negative number.
func cbIndex(data, prefix string) (int, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ---------- Screens ----------

func (a *App) showMenu(chatID int64) error {
	return a.send(chatID, "🐴 Wedstrijdbeheer", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Nieuwe wedstrijd", "m:new"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Wedstrijden", "m:list"),
		),
	))
}

func (a *App) showCompetitions(chatID int64) error {
	ids, err := a.svc.List()
	if err != nil {
		return err
	}
	st := a.chat(chatID)
	st.Listed = ids
	if len(ids) == 0 {
		return a.send(chatID, "Nog geen wedstrijden toegevoegd.", tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Nieuwe wedstrijd", "m:new"),
			),
		))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, id := range ids {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📂 "+id, "c:open:"+strconv.Itoa(i)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", "c:rm:"+strconv.Itoa(i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Nieuwe wedstrijd", "m:new"),
	))
	return a.send(chatID, "📋 Jouw wedstrijden", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (a *App) showCompetition(chatID int64, id string) error {
	c, err := a.svc.Get(id)
	if err != nil {
		return err
	}
	return a.send(chatID, competitionSummary(id, c), a.competitionKeyboard())
}

func competitionSummary(id string, c models.Competition) string {
	last := "nog niet"
	if c.LastUpload != nil {
		last = *c.LastUpload
	}
	return fmt.Sprintf("📂 %s\n📅 Datum: %s\n👥 Deelnemers: %d\n📞 Gecontacteerd: %d\n⏱ Laatste upload: %s",
		outreach.DisplayName(id, c.Date), c.Date, len(c.Participants), c.ContactedCount(), last)
}

func (a *App) competitionKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Deelnemers", "p:list:0"),
			tgbotapi.NewInlineKeyboardButtonData("📤 CSV uploaden", "c:upload"),
		),
	}
	export := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📄 Export", "c:export"),
	)
	if a.pub != nil {
		export = append(export, tgbotapi.NewInlineKeyboardButtonData("📊 Naar Sheets", "c:sheet"))
	}
	rows = append(rows, export, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Verwijderen", "c:del"),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menu", "m:menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (a *App) showParticipants(chatID int64, id string, page int) error {
	c, err := a.svc.Get(id)
	if err != nil {
		return err
	}
	if len(c.Participants) == 0 {
		return a.send(chatID, "Nog geen deelnemers. Upload een CSV-bestand.", a.competitionKeyboard())
	}
	pages := (len(c.Participants) + pageSize - 1) / pageSize
	if page >= pages {
		page = pages - 1
	}
	start := page * pageSize
	end := min(start+pageSize, len(c.Participants))

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i := start; i < end; i++ {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(participantLabel(c.Participants[i]), "p:show:"+strconv.Itoa(i)),
		))
	}
	nav := []tgbotapi.InlineKeyboardButton{}
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", "p:list:"+strconv.Itoa(page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", "p:list:"+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Wedstrijd", "c:show"),
	))
	text := fmt.Sprintf("👥 Deelnemers %d–%d van %d (✅ = gecontacteerd)", start+1, end, len(c.Participants))
	return a.send(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func participantLabel(p models.Participant) string {
	mark := "⬜"
	if p.Contacted {
		mark = "✅"
	}
	label := mark + " " + p.FullName + " – " + p.HorseName
	if p.Class != "" {
		label += " (" + p.Class + ")"
	}
	return label
}

func participantDetails(p models.Participant) string {
	contacted := "nee"
	if p.Contacted {
		contacted = "ja"
	}
	lines := []string{
		"👤 " + p.FullName,
		"🐴 Paard: " + p.HorseName,
	}
	for _, f := range []struct{ label, value string }{
		{"Klasse", p.Class},
		{"Categorie", p.Category},
		{"Telefoon", p.Phone},
		{"Opmerkingen", p.Remarks},
	} {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	lines = append(lines, "Gecontacteerd: "+contacted)
	if p.Note != "" {
		lines = append(lines, "📝 "+p.Note)
	}
	return strings.Join(lines, "\n")
}

// participant loads competition id and returns participant n.
func (a *App) participant(id string, n int) (models.Competition, models.Participant, bool, error) {
	c, err := a.svc.Get(id)
	if err != nil {
		return c, models.Participant{}, false, err
	}
	if n >= len(c.Participants) {
		return c, models.Participant{}, false, nil
	}
	return c, c.Participants[n], true, nil
}

func (a *App) showParticipant(chatID int64, id string, n int) error {
	_, p, ok, err := a.participant(id, n)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(chatID, "Deelnemer niet gevonden.")
	}
	idx := strconv.Itoa(n)
	first := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💬 Bericht", "p:msg:"+idx),
		tgbotapi.NewInlineKeyboardButtonData("📝 Notitie", "p:note:"+idx),
	)
	if !p.Contacted {
		first = append([]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📞 Gecontacteerd", "p:contact:"+idx),
		}, first...)
	}
	return a.send(chatID, participantDetails(p), tgbotapi.NewInlineKeyboardMarkup(
		first,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Deelnemers", "p:list:"+strconv.Itoa(n/pageSize)),
		),
	))
}

// ---------- Actions ----------

func (a *App) markContacted(chatID int64, id string, n int) error {
	_, p, ok, err := a.participant(id, n)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(chatID, "Deelnemer niet gevonden.")
	}
	if err := a.svc.MarkContacted(id, p.Key()); err != nil {
		return err
	}
	if err := a.SendText(chatID, "✅ "+p.FullName+" gemarkeerd als gecontacteerd."); err != nil {
		return err
	}
	return a.showParticipants(chatID, id, n/pageSize)
}

func (a *App) sendOutreach(chatID int64, id string, n int) error {
	c, p, ok, err := a.participant(id, n)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(chatID, "Deelnemer niet gevonden.")
	}
	text, err := a.out.Message(id, c, p)
	if err != nil {
		return err
	}
	if link := outreach.WhatsAppLink(p.Phone, text); link != "" {
		text += "\n\n📱 " + link
	}
	return a.SendText(chatID, text)
}

func (a *App) sendExport(chatID int64, id string) error {
	c, err := a.svc.Get(id)
	if err != nil {
		return err
	}
	var b strings.Builder
	if err := roster.WriteCSV(&b, c.Participants); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: id + ".csv", Bytes: []byte(b.String())})
	doc.Caption = "📄 Export " + id
	if _, err := a.bot.Send(doc); err != nil {
		return err
	}
	return a.SendText(chatID, "🔗 Downloadlink: "+server.ExportURL(a.cfg, id))
}

func (a *App) publish(ctx context.Context, chatID int64, id string) error {
	if a.pub == nil {
		return a.SendText(chatID, "Google Sheets is niet ingesteld.")
	}
	c, err := a.svc.Get(id)
	if err != nil {
		return err
	}
	if err := a.pub.PublishRoster(ctx, id, c.Participants); err != nil {
		return err
	}
	return a.SendText(chatID, "📊 Deelnemerslijst bijgewerkt: "+a.pub.URL())
}

func (a *App) handleDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) error {
	st := a.chat(chatID)
	if st.Competition == "" {
		return a.SendText(chatID, "Kies eerst een wedstrijd (/wedstrijden) en stuur dan het bestand.")
	}
	if ok, err := a.checkSelection(chatID, st); !ok {
		return err
	}
	if doc.FileSize > maxUploadSize {
		return a.SendText(chatID, "Bestand is te groot.")
	}
	url, err := a.bot.GetFileDirectURL(doc.FileID)
	if err != nil {
		return fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", doc.FileName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("download %s: %s", doc.FileName, resp.Status)
	}

	rep, err := a.svc.Import(st.Competition, io.LimitReader(resp.Body, maxUploadSize))
	if err != nil {
		return err
	}
	if err := a.SendText(chatID, importSummary(doc.FileName, rep)); err != nil {
		return err
	}
	return a.showCompetition(chatID, st.Competition)
}

func importSummary(fileName string, rep roster.ImportReport) string {
	text := fmt.Sprintf("✅ %s verwerkt: %d rijen, %d nieuw, %d al aanwezig.", fileName, rep.Rows, rep.Added, rep.Duplicates)
	if rep.Skipped > 0 {
		text += fmt.Sprintf("\n⚠️ %d rijen zonder naam of paard overgeslagen.", rep.Skipped)
	}
	if rep.Malformed > 0 {
		text += fmt.Sprintf("\n⚠️ %d rijen met een lege naam overgeslagen.", rep.Malformed)
	}
	return text + fmt.Sprintf("\n👥 Totaal: %d deelnemers.", rep.Total)
}
