package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blogger-web/internal/backend"
	"github.com/sakif/blogger-web/internal/feed"
	"github.com/sakif/blogger-web/internal/model"
	"github.com/sakif/blogger-web/internal/render"
	"github.com/sakif/blogger-web/internal/session"
)

// PageHandler renders the server-side views. Each request resolves the
// viewer from cookies, binds a backend client to their token, builds the
// feed state it needs and hands plain view models to html/template.
//
// Failures never break a page: a dead backend renders the empty states
// ("No posts found", the initial-letter avatar badge) instead of an error
// page.
type PageHandler struct {
	client  *backend.Client
	avatars *feed.AvatarCache
	logger  *slog.Logger
	pages   map[string]*template.Template
}

// Page templates. Each is parsed together with the shared layout.
var pageNames = []string{"home", "post", "search", "profile", "editor", "login", "register"}

// NewPageHandler parses the templates and wires the shared avatar cache.
func NewPageHandler(client *backend.Client, templateDir string, avatars *feed.AvatarCache, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	layout := filepath.Join(templateDir, "layout.html")
	for _, name := range pageNames {
		tmpl, err := template.ParseFiles(layout, filepath.Join(templateDir, name+".html"))
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &PageHandler{
		client:  client,
		avatars: avatars,
		logger:  logger,
		pages:   pages,
	}, nil
}

// Routes mounts all page routes.
func (h *PageHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleHome)
	r.Get("/login", h.HandleLoginPage)
	r.Post("/login", h.HandleLoginSubmit)
	r.Get("/register", h.HandleRegisterPage)
	r.Post("/register", h.HandleRegisterSubmit)
	r.Post("/logout", h.HandleLogout)
	r.Get("/post/search", h.HandleSearch)
	r.Get("/post/write", h.HandleWritePage)
	r.Post("/post/write", h.HandleCreatePost)
	r.Get("/post/{id}", h.HandleDetail)
	r.Post("/post/{id}/like", h.HandleToggleLike)
	r.Post("/post/{id}/comments", h.HandleSubmitComment)
	r.Get("/post/{id}/edit", h.HandleEditPage)
	r.Post("/post/{id}/edit", h.HandleUpdatePost)
	r.Post("/post/{id}/delete", h.HandleDeletePost)
	r.Get("/profile/{id}", h.HandleProfile)
}

// ---- view models ----

// postCard is the list-view projection of a post.
type postCard struct {
	ID            int
	Title         string
	Excerpt       string
	Tags          []string
	ImageURL      string
	AuthorID      int
	AuthorName    string
	AuthorInitial string
	AvatarURL     string
	CreatedAt     string
	Likes         int
	Comments      int
	Liked         bool
}

type commentView struct {
	Content       string
	AuthorName    string
	AuthorInitial string
	AvatarURL     string
	CreatedAt     string
}

type basePage struct {
	Title    string
	LoggedIn bool
	Viewer   *model.User
	Query    string
}

func (h *PageHandler) base(title string, viewer session.Viewer) basePage {
	p := basePage{Title: title, LoggedIn: viewer.LoggedIn()}
	if p.LoggedIn {
		p.Viewer = viewer.User
	}
	return p
}

// viewerClient binds the shared backend client to this request's token.
func (h *PageHandler) viewerClient(r *http.Request) (*backend.Client, session.Viewer) {
	viewer := session.FromRequest(r)
	return h.client.WithToken(viewer.Token), viewer
}

// buildCards projects posts into card view models: plain-text excerpt,
// resolved avatar, and, for a logged-in viewer, the like flag derived
// through LikeState. Resolution failures degrade to the initial badge.
func (h *PageHandler) buildCards(ctx context.Context, src *backend.Client, viewer session.Viewer, posts []model.Post) []postCard {
	resolver := feed.NewAvatarResolver(src, h.avatars, h.client.BaseURL())
	cards := make([]postCard, 0, len(posts))
	for _, p := range posts {
		avatarURL, err := resolver.Resolve(ctx, p.Author)
		if err != nil {
			avatarURL = ""
		}

		liked := false
		if viewer.UserID() != 0 {
			state := feed.NewLikeState(src, p.ID, p.Likes, viewer.UserID(), nil)
			if err := state.Refresh(ctx); err == nil {
				liked = state.Liked()
			}
		}

		cards = append(cards, postCard{
			ID:            p.ID,
			Title:         p.Title,
			Excerpt:       render.Excerpt(p.Content, 0),
			Tags:          p.Tags,
			ImageURL:      h.imageURL(p.ImageURL),
			AuthorID:      p.Author.ID,
			AuthorName:    p.Author.Name,
			AuthorInitial: p.Author.Initial(),
			AvatarURL:     avatarURL,
			CreatedAt:     p.CreatedAt.Format("2 Jan 2006"),
			Likes:         p.Likes,
			Comments:      p.Comments,
			Liked:         liked,
		})
	}
	return cards
}

// imageURL absolutizes a post cover path the same way avatars are resolved,
// with the bundled placeholder as the fallback.
func (h *PageHandler) imageURL(raw string) string {
	base := h.client.BaseURL()
	switch {
	case raw == "":
		return "/static/image-post.png"
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "/"):
		return base + raw
	default:
		return base + "/uploads/" + raw
	}
}

func (h *PageHandler) renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.logger.Error("unknown page template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Error("rendering page failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

// ---- feed pages ----

type homePage struct {
	basePage
	Cards      []postCard
	MostLiked  []postCard
	Pager      []feed.PageItem
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// HandleHome renders the recommended feed with the most-liked rail.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	ctx := r.Context()

	page := 1
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		page = n
	}

	list := feed.NewRecommended(src, feed.DefaultPageSize)
	if err := list.GoToPage(ctx, page); err != nil {
		h.logger.Warn("loading recommended feed failed", slog.String("error", err.Error()))
	}

	rail := feed.NewMostLiked(src, feed.DefaultMostLikedMax)
	if err := rail.Load(ctx); err != nil {
		h.logger.Warn("loading most-liked rail failed", slog.String("error", err.Error()))
	}

	data := homePage{
		basePage:   h.base("Home", viewer),
		Cards:      h.buildCards(ctx, src, viewer, list.Items()),
		MostLiked:  h.buildCards(ctx, src, viewer, rail.Posts()),
		Pager:      feed.Pages(list.Page(), list.TotalPages(), 0),
		Page:       list.Page(),
		TotalPages: list.TotalPages(),
		HasPrev:    list.Page() > 1,
		HasNext:    list.Page() < list.TotalPages(),
	}
	h.renderPage(w, "home", data)
}

type searchPage struct {
	basePage
	Cards []postCard
}

// HandleSearch renders search results. A blank query renders the empty
// state without touching the backend.
func (h *PageHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	results := feed.NewSearchResults(src)
	if err := results.SearchByQuery(ctx, query); err != nil {
		h.logger.Warn("search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
	}

	data := searchPage{
		basePage: h.base("Search", viewer),
		Cards:    h.buildCards(ctx, src, viewer, results.Posts()),
	}
	data.Query = results.Query()
	h.renderPage(w, "search", data)
}

type profilePage struct {
	basePage
	Owner        *model.User
	OwnerAvatar  string
	OwnerInitial string
	IsSelf       bool
	Cards        []postCard
	Pager        []feed.PageItem
	Page         int
	TotalPages   int
}

// HandleProfile renders a user's posts with their profile header.
func (h *PageHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	ctx := r.Context()

	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || userID <= 0 {
		http.NotFound(w, r)
		return
	}

	page := 1
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		page = n
	}

	list := feed.NewByUser(src, userID, feed.DefaultPageSize)
	if err := list.GoToPage(ctx, page); err != nil {
		h.logger.Warn("loading user posts failed",
			slog.Int("user", userID),
			slog.String("error", err.Error()),
		)
	}

	owner := list.Owner()
	if owner == nil {
		// By-user feeds include the profile; fall back to a direct lookup
		// for users with no posts yet.
		if fetched, err := src.User(ctx, userID); err == nil {
			owner = fetched
		} else {
			http.NotFound(w, r)
			return
		}
	}

	resolver := feed.NewAvatarResolver(src, h.avatars, h.client.BaseURL())
	ownerAvatar, _ := resolver.Resolve(ctx, *owner)

	data := profilePage{
		basePage:     h.base(owner.Name, viewer),
		Owner:        owner,
		OwnerAvatar:  ownerAvatar,
		OwnerInitial: owner.Initial(),
		IsSelf:       viewer.UserID() == owner.ID,
		Cards:        h.buildCards(ctx, src, viewer, list.Items()),
		Pager:        feed.Pages(list.Page(), list.TotalPages(), 0),
		Page:         list.Page(),
		TotalPages:   list.TotalPages(),
	}
	h.renderPage(w, "profile", data)
}

// ---- post detail ----

type detailPage struct {
	basePage
	Card         postCard
	Content      template.HTML
	Liked        bool
	Comments     []commentView
	CommentCount int
	IsAuthor     bool
	CommentError bool
}

// HandleDetail renders a single post with its comment thread.
func (h *PageHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	ctx := r.Context()

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}

	post, err := src.Post(ctx, postID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	state := feed.NewLikeState(src, post.ID, post.Likes, viewer.UserID(), nil)
	if err := state.Refresh(ctx); err != nil {
		h.logger.Warn("deriving like status failed",
			slog.Int("post", post.ID),
			slog.String("error", err.Error()),
		)
	}

	thread := feed.NewCommentFeed(src, post.ID)
	if err := thread.Load(ctx); err != nil {
		h.logger.Warn("loading comments failed",
			slog.Int("post", post.ID),
			slog.String("error", err.Error()),
		)
	}

	resolver := feed.NewAvatarResolver(src, h.avatars, h.client.BaseURL())
	comments := thread.Comments()
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		avatarURL, _ := resolver.Resolve(ctx, c.Author)
		views = append(views, commentView{
			Content:       c.Content,
			AuthorName:    c.Author.Name,
			AuthorInitial: c.Author.Initial(),
			AvatarURL:     avatarURL,
			CreatedAt:     c.CreatedAt.Format("2 Jan 2006, 15:04"),
		})
	}

	cards := h.buildCards(ctx, src, viewer, []model.Post{*post})

	data := detailPage{
		basePage:     h.base(post.Title, viewer),
		Card:         cards[0],
		Content:      template.HTML(post.Content),
		Liked:        state.Liked(),
		Comments:     views,
		CommentCount: len(views),
		IsAuthor:     viewer.UserID() == post.Author.ID,
		CommentError: r.URL.Query().Get("comment_error") != "",
	}
	data.Card.Likes = state.Likes()
	h.renderPage(w, "post", data)
}

// HandleToggleLike flips the viewer's like and returns to the page the
// click came from. Failures are silent: the page simply re-renders the
// reverted (server-truth) state.
func (h *PageHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	state := feed.NewLikeState(src, postID, 0, viewer.UserID(), nil)
	if err := state.Refresh(r.Context()); err == nil {
		if _, err := state.Toggle(r.Context()); err != nil {
			h.logger.Warn("like toggle failed",
				slog.Int("post", postID),
				slog.String("error", err.Error()),
			)
		}
	}

	http.Redirect(w, r, backTo(r, fmt.Sprintf("/post/%d", postID)), http.StatusSeeOther)
}

// HandleSubmitComment posts the comment form through CommentFeed and
// redirects back to the thread. A failure comes back as a flag the page
// turns into a generic alert.
func (h *PageHandler) HandleSubmitComment(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	thread := feed.NewCommentFeed(src, postID)
	thread.SetDraft(r.FormValue("content"))

	target := fmt.Sprintf("/post/%d", postID)
	if _, err := thread.Submit(r.Context()); err != nil {
		h.logger.Warn("comment submit failed",
			slog.Int("post", postID),
			slog.String("error", err.Error()),
		)
		target += "?comment_error=1"
	}
	http.Redirect(w, r, target+"#comments", http.StatusSeeOther)
}

// ---- write / edit ----

type editorPage struct {
	basePage
	Editing bool
	PostID  int
	Post    *model.Post
	TagsCSV string
	Error   string
}

// HandleWritePage renders the new-post form.
func (h *PageHandler) HandleWritePage(w http.ResponseWriter, r *http.Request) {
	_, viewer := h.viewerClient(r)
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.renderPage(w, "editor", editorPage{basePage: h.base("Write", viewer)})
}

// HandleCreatePost streams the multipart form straight to the backend and
// redirects to the created post.
func (h *PageHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	created, err := forwardPostForm(r.Context(), src, http.MethodPost, "/posts", r)
	if err != nil {
		h.renderPage(w, "editor", editorPage{
			basePage: h.base("Write", viewer),
			Error:    err.Error(),
		})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/post/%d", created.ID), http.StatusSeeOther)
}

// HandleEditPage renders the edit form pre-filled with the post.
func (h *PageHandler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}
	post, err := src.Post(r.Context(), postID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if post.Author.ID != viewer.UserID() {
		http.Redirect(w, r, fmt.Sprintf("/post/%d", postID), http.StatusSeeOther)
		return
	}

	h.renderPage(w, "editor", editorPage{
		basePage: h.base("Edit", viewer),
		Editing:  true,
		PostID:   post.ID,
		Post:     post,
		TagsCSV:  strings.Join(post.Tags, ", "),
	})
}

// HandleUpdatePost streams the edit form to the backend.
func (h *PageHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}

	updated, err := forwardPostForm(r.Context(), src, http.MethodPatch, fmt.Sprintf("/posts/%d", postID), r)
	if err != nil {
		h.renderPage(w, "editor", editorPage{
			basePage: h.base("Edit", viewer),
			Editing:  true,
			PostID:   postID,
			Error:    err.Error(),
		})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/post/%d", updated.ID), http.StatusSeeOther)
}

// HandleDeletePost removes the post and returns home. The backend enforces
// ownership; a failure just bounces back to the post.
func (h *PageHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	src, viewer := h.viewerClient(r)
	if !viewer.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || postID <= 0 {
		http.NotFound(w, r)
		return
	}
	if err := src.DeletePost(r.Context(), postID); err != nil {
		h.logger.Warn("deleting post failed",
			slog.Int("post", postID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, fmt.Sprintf("/post/%d", postID), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ---- auth pages ----

type authPage struct {
	basePage
	Error   string
	Email   string
	Name    string
	Success bool
}

// HandleLoginPage renders the login form.
func (h *PageHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	_, viewer := h.viewerClient(r)
	if viewer.LoggedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := authPage{basePage: h.base("Login", viewer)}
	data.Success = r.URL.Query().Get("registered") != ""
	h.renderPage(w, "login", data)
}

// HandleLoginSubmit logs in against the backend and establishes the
// session cookies.
func (h *PageHandler) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	_, viewer := h.viewerClient(r)
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	resp, err := h.client.Login(r.Context(), email, password)
	if err != nil {
		h.renderPage(w, "login", authPage{
			basePage: h.base("Login", viewer),
			Error:    err.Error(),
			Email:    email,
		})
		return
	}

	user := resp.User
	if user == nil {
		if fetched, err := h.client.WithToken(resp.Token).UserByEmail(r.Context(), email); err == nil {
			user = fetched
		}
	}
	session.Write(w, resp.Token, user)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegisterPage renders the registration form.
func (h *PageHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	_, viewer := h.viewerClient(r)
	if viewer.LoggedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderPage(w, "register", authPage{basePage: h.base("Register", viewer)})
}

// HandleRegisterSubmit creates the account, then sends the viewer to the
// login form (no auto-login; the backend does not return a token here on
// all versions).
func (h *PageHandler) HandleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	_, viewer := h.viewerClient(r)
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if _, err := h.client.Register(r.Context(), name, email, password); err != nil {
		h.renderPage(w, "register", authPage{
			basePage: h.base("Register", viewer),
			Error:    err.Error(),
			Email:    email,
			Name:     name,
		})
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// HandleLogout clears the session cookies.
func (h *PageHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ---- helpers ----

// forwardPostForm streams a browser form body to the backend unchanged and
// decodes the resulting post. Multipart bodies (cover image included) pass
// through without being parsed here.
func forwardPostForm(ctx context.Context, src *backend.Client, method, path string, r *http.Request) (*model.Post, error) {
	resp, err := src.Forward(ctx, method, path, nil, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backend.DecodeError(resp)
	}
	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return &post, nil
}

// backTo picks the redirect target after an action: the referring page when
// it is local, otherwise the fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Header.Get("Referer")
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	if u, err := r.URL.Parse(ref); err == nil && u.Host == r.Host && u.Path != "" {
		return u.Path
	}
	return fallback
}
