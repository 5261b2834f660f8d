package channels

var webChatHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>GPT Chat</title>
<style>
:root{
  --bg:#101218;--panel:#171a24;--bubble:#1e2230;--line:#2a2e3d;
  --accent:#5b8def;--text:#e6e8ef;--muted:#7d8294;--ok:#34d399;--bad:#f87171;
}
*{box-sizing:border-box;margin:0;padding:0}
html,body{height:100%}
body{font-family:system-ui,sans-serif;background:var(--bg);color:var(--text);display:flex;flex-direction:column}
#header{display:flex;align-items:center;gap:10px;padding:12px 20px;background:var(--panel);border-bottom:1px solid var(--line)}
#header h1{font-size:16px;font-weight:600}
#header .subtitle{font-size:12px;color:var(--muted)}
.status-dot{margin-left:auto;width:8px;height:8px;border-radius:50%;background:var(--ok)}
.status-dot.offline{background:var(--bad)}
#chat{flex:1;overflow-y:auto;padding:20px;display:flex;flex-direction:column;gap:12px}
#empty-state{margin:auto;color:var(--muted);font-size:14px}
.msg-row{display:flex;gap:8px}
.msg-row.user{flex-direction:row-reverse}
.msg-avatar{width:28px;height:28px;border-radius:8px;background:var(--bubble);display:flex;align-items:center;justify-content:center;flex-shrink:0}
.msg-avatar svg{width:14px;height:14px;color:var(--muted)}
.msg-bubble{max-width:75%;padding:10px 14px;border-radius:12px;background:var(--bubble);line-height:1.6;font-size:14px;white-space:pre-wrap;word-wrap:break-word}
.msg-row.user .msg-bubble{background:var(--accent);color:#fff}
.msg-bubble .time{display:block;margin-top:4px;font-size:11px;opacity:.6}
.msg-bubble code{font-family:ui-monospace,monospace;font-size:13px}
.msg-bubble pre{padding:10px;margin:6px 0;overflow-x:auto;background:var(--bg);border-radius:6px}
.msg-bubble a{color:#9db9ff}
#input-area{padding:12px 20px 16px;background:var(--panel);border-top:1px solid var(--line)}
.input-wrapper{display:flex;align-items:flex-end;gap:8px;padding:4px 4px 4px 12px;background:var(--bg);border:1px solid var(--line);border-radius:10px}
#userInput{flex:1;padding:8px 0;border:none;outline:none;resize:none;max-height:120px;background:transparent;color:var(--text);font:inherit}
#send{width:38px;height:38px;border:none;border-radius:8px;background:var(--accent);color:#fff;cursor:pointer;display:flex;align-items:center;justify-content:center}
#send:disabled{opacity:.4;cursor:not-allowed}
#send svg{width:18px;height:18px}
.icon-arrow{display:flex}
.loading-icon{width:16px;height:16px;border-radius:50%;border:2px solid rgba(255,255,255,.35);border-top-color:#fff;animation:spin .8s linear infinite}
@keyframes spin{to{transform:rotate(360deg)}}
.hint{margin-top:6px;font-size:11px;color:var(--muted);text-align:center}
</style>
</head>
<body>
<div id="header">
  <h1>GPT Chat</h1><span class="subtitle" id="session-label">connecting...</span>
  <div class="status-dot offline" id="status" title="Offline"></div>
</div>
<div id="chat">
  <div id="empty-state">Ask a question to start the conversation.</div>
</div>
<div id="input-area">
  <div class="input-wrapper">
    <textarea id="userInput" rows="1" placeholder="Type a message..." aria-label="Chat message input"></textarea>
    <button id="send" aria-label="Send message"><span class="icon-arrow"><svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><line x1="22" y1="2" x2="11" y2="13"/><polygon points="22 2 15 22 11 13 2 9 22 2"/></svg></span></button>
  </div>
  <div class="hint">Press Enter to send · Shift+Enter for new line</div>
</div>
<script>
const chat=document.getElementById("chat"),
      input=document.getElementById("userInput"),
      send=document.getElementById("send"),
      iconArrow=send.querySelector(".icon-arrow"),
      statusDot=document.getElementById("status"),
      sessionLabel=document.getElementById("session-label"),
      emptyState=document.getElementById("empty-state");
let ws=null;
function esc(s){return s.replace(/&/g,"&amp;").replace(/</g,"&lt;").replace(/>/g,"&gt;")}
function addMsg(role,text,html,time){
  if(emptyState.parentNode)emptyState.remove();
  const row=document.createElement("div");row.className="msg-row "+(role==="user"?"user":"assistant");
  const av=document.createElement("div");av.className="msg-avatar";
  if(role==="user"){
    av.innerHTML='<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M20 21v-2a4 4 0 00-4-4H8a4 4 0 00-4 4v2"/><circle cx="12" cy="7" r="4"/></svg>';
  }else{
    av.innerHTML='<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M12 2L2 7l10 5 10-5-10-5z"/><path d="M2 17l10 5 10-5"/><path d="M2 12l10 5 10-5"/></svg>';
  }
  const bubble=document.createElement("div");bubble.className="msg-bubble";
  bubble.innerHTML=(html?html:esc(text))+(time?'<span class="time">'+esc(time)+'</span>':'');
  row.appendChild(av);row.appendChild(bubble);
  chat.appendChild(row);chat.scrollTop=chat.scrollHeight;
}
function setAffordance(state){
  if(state==="in_flight"){
    iconArrow.style.display="none";
    if(!document.getElementById("loadingIcon")){
      const loading=document.createElement("span");
      loading.className="loading-icon";loading.id="loadingIcon";
      send.appendChild(loading);
    }
    send.disabled=true;
    return;
  }
  send.disabled=false;
  iconArrow.style.display="";
  const loadingIcon=document.getElementById("loadingIcon");
  if(loadingIcon)loadingIcon.remove();
}
function resetChat(){
  chat.innerHTML="";chat.appendChild(emptyState);
}
function push(type,extra){
  if(!ws||ws.readyState!==WebSocket.OPEN)return;
  ws.send(JSON.stringify(Object.assign({type:type,text:input.value},extra||{})));
}
function connect(){
  ws=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+"/chat/ws");
  ws.onopen=()=>{statusDot.classList.remove("offline");statusDot.title="Online";push("input")};
  ws.onmessage=e=>{
    const f=JSON.parse(e.data);
    switch(f.type){
    case "session":resetChat();sessionLabel.textContent="session "+f.session_id.slice(0,8);break;
    case "message":addMsg(f.origin,f.text||"",f.html||"",f.time||"");break;
    case "affordance":setAffordance(f.state);break;
    case "clear_input":input.value="";input.style.height="auto";break;
    }
  };
  ws.onclose=()=>{
    statusDot.classList.add("offline");statusDot.title="Offline";
    sessionLabel.textContent="reconnecting...";
    setAffordance("idle");
    setTimeout(connect,2000);
  };
}
input.addEventListener("input",()=>{
  input.style.height="auto";input.style.height=Math.min(input.scrollHeight,120)+"px";
  push("input");
});
input.addEventListener("keydown",e=>{
  if(e.key==="Enter"&&!e.shiftKey){
    e.preventDefault();
    push("input");push("submit");
  }
});
send.addEventListener("click",()=>{push("input");push("click")});
connect();
input.focus();
</script>
</body>
</html>`
