package main

import "html/template"

const pageHead = `<!doctype html><html><head><meta charset="utf-8"><title>{{template "title" .}}</title>
<style>
body{font-family:sans-serif;margin:0;background:#f3f2ef}
main{max-width:760px;margin:24px auto;background:#fff;padding:16px;border-radius:8px}
.artdeco-modal{position:fixed;top:20%;left:30%;width:40%;background:#fff;border:1px solid #ccc;padding:16px;z-index:10}
.artdeco-toast{position:fixed;bottom:16px;left:16px;background:#333;color:#fff;padding:8px;z-index:20}
.hidden{display:none}
</style></head><body><main>`

const pageFoot = `</main></body></html>`

var loginPage = template.Must(template.New("login").Parse(`{{define "title"}}Sign in{{end}}` + pageHead + `
<h1>Sign in</h1>
<form method="post" action="/login">
  <input id="username" name="session_key" type="text" autocomplete="username">
  <input id="password" name="session_password" type="password" autocomplete="current-password">
  <button type="submit" class="btn__primary--large">Sign in</button>
</form>` + pageFoot))

var checkpointPage = template.Must(template.New("checkpoint").Parse(`{{define "title"}}Security verification{{end}}` + pageHead + `
<h1>Let's do a quick security check</h1>` + pageFoot))

var feedPage = template.Must(template.New("feed").Parse(`{{define "title"}}Feed{{end}}` + pageHead + `
<div class="share-box-feed-entry__closed-share-box">
  <button class="artdeco-button share-box-feed-entry__trigger" id="start-post"><span>Start a post</span></button>
</div>
<div class="artdeco-modal hidden" id="composer" role="dialog">
  <button aria-label="Dismiss" class="artdeco-modal__dismiss" id="composer-close">x</button>
  <div class="ql-editor" role="textbox" contenteditable="true" data-placeholder="What do you want to talk about?" id="editor"></div>
  <button class="artdeco-button share-actions-primary-button" id="post"><span>Post</span></button>
</div>
<ul id="posts">{{range .Posts}}<li class="feed-post">{{.}}</li>{{end}}</ul>
<script>
const composer = document.getElementById('composer');
document.getElementById('start-post').onclick = () => composer.classList.remove('hidden');
document.getElementById('composer-close').onclick = () => composer.classList.add('hidden');
document.getElementById('post').onclick = async () => {
  const text = document.getElementById('editor').innerText;
  await fetch('/feed/post', {method: 'POST', body: JSON.stringify({text})});
  location.reload();
};
</script>` + pageFoot))

var searchPage = template.Must(template.New("search").Parse(`{{define "title"}}{{.Keyword}} | Search{{end}}` + pageHead + `
<div class="search-results-container">
<ul class="reusable-search__entity-result-list">
{{range .People}}
  <li class="reusable-search__result-container">
    <div class="entity-result" data-id="{{.ID}}">
      <span class="entity-result__title-text"><a href="#"><span aria-hidden="true">{{.Name}}</span></a></span>
      <div class="entity-result__primary-subtitle">{{.Headline}}</div>
      {{if .Pending}}<span class="status">Pending</span>
      {{else if .Follow}}<button class="artdeco-button follow" aria-label="Follow {{.Name}}"><span>Follow</span></button>
      {{else}}<button class="artdeco-button connect" aria-label="Invite {{.Name}} to connect"><span>Connect</span></button>{{end}}
      <button class="artdeco-button message" aria-label="Message {{.Name}}"><span>Message</span></button>
    </div>
  </li>
{{end}}
</ul>
<div class="artdeco-pagination">
{{if .Next}}<button aria-label="Next" class="artdeco-pagination__button--next" data-href="{{.Next}}"><span>Next</span></button>
{{else}}<button aria-label="Next" class="artdeco-pagination__button--next" disabled><span>Next</span></button>{{end}}
</div>
</div>
<div class="artdeco-modal hidden" id="invite" role="dialog">
  <button aria-label="Dismiss" class="artdeco-modal__dismiss">x</button>
  <p>You can add a note to personalize your invitation.</p>
  <button aria-label="Add a note"><span>Add a note</span></button>
  <button aria-label="Send without a note" id="send-bare"><span>Send without a note</span></button>
</div>
<div class="artdeco-toast" id="toast"><span>Try Premium for free</span><button aria-label="Dismiss">x</button></div>
<script>
const modal = document.getElementById('invite');
let current = null;
async function invite(card) {
  await fetch('/invite?id=' + encodeURIComponent(card.dataset.id), {method: 'POST'});
  card.querySelectorAll('button.connect, button.follow').forEach(b => {
    const s = document.createElement('span');
    s.className = 'status';
    s.textContent = b.classList.contains('follow') ? 'Following' : 'Pending';
    b.replaceWith(s);
  });
}
document.querySelectorAll('button.connect').forEach(b => b.onclick = () => {
  current = b.closest('.entity-result');
  modal.classList.remove('hidden');
});
document.querySelectorAll('button.follow').forEach(b => b.onclick = () => invite(b.closest('.entity-result')));
document.getElementById('send-bare').onclick = async () => {
  modal.classList.add('hidden');
  if (current) await invite(current);
  current = null;
};
modal.querySelector('[aria-label=Dismiss]').onclick = () => { modal.classList.add('hidden'); current = null; };
document.getElementById('toast').querySelector('button').onclick = () => document.getElementById('toast').remove();
document.querySelectorAll('button[data-href]').forEach(b => b.onclick = () => { location.href = b.dataset.href; });
</script>` + pageFoot))

var messagingPage = template.Must(template.New("messaging").Parse(`{{define "title"}}Messaging{{end}}` + pageHead + `
<ul class="msg-conversations-container__conversations-list">
{{range .Conversations}}<li class="msg-conversation-listitem" data-id="{{.ID}}"><a href="#">{{.With}}</a></li>{{end}}
</ul>
<div id="thread"></div>
<form class="msg-form hidden" id="form">
  <div class="msg-form__contenteditable" role="textbox" contenteditable="true" id="input"></div>
  <button type="submit" class="msg-form__send-button">Send</button>
</form>
<script>
const convs = {{.Conversations}};
const thread = document.getElementById('thread');
const form = document.getElementById('form');
let active = null;
function show(id) {
  active = convs.find(c => c.ID === id);
  thread.innerHTML = '';
  (active.Messages || []).forEach((m, i) => {
    const d = document.createElement('div');
    d.className = 'msg-s-event-listitem';
    d.id = 'msg-' + active.ID + '-' + i;
    d.textContent = m;
    thread.appendChild(d);
  });
  form.classList.remove('hidden');
}
document.querySelectorAll('li.msg-conversation-listitem').forEach(li => li.onclick = () => show(li.dataset.id));
form.onsubmit = async (e) => {
  e.preventDefault();
  const input = document.getElementById('input');
  const text = input.innerText;
  await fetch('/messaging/send', {method: 'POST', body: JSON.stringify({id: active.ID, text})});
  active.Messages.push('You: ' + text);
  input.innerText = '';
  show(active.ID);
};
</script>` + pageFoot))
