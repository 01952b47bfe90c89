package wsserver

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Qualicam Viewer</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; background: #111; color: #ddd; font-family: monospace; }
        .app { max-width: 960px; margin: 0 auto; padding: 16px; }
        .controls { display: flex; gap: 8px; align-items: center; margin-bottom: 12px; }
        .controls input { width: 64px; background: #222; color: #ddd; border: 1px solid #444; padding: 4px; }
        .controls button { background: #2a6; color: #fff; border: none; padding: 6px 14px; cursor: pointer; }
        .controls button.stop { background: #a33; }
        #status { margin-left: auto; color: #888; }
        #frame { width: 100%; background: #000; display: block; min-height: 360px; }
    </style>
</head>
<body>
    <div class="app">
        <h2>Qualicam Live Stream</h2>
        <div class="controls">
            <label for="quality">Quality</label>
            <input type="number" id="quality" min="30" max="95" value="75">
            <button type="button" id="btn-connect">Connect</button>
            <button type="button" id="btn-disconnect" class="stop" disabled>Disconnect</button>
            <span id="status">disconnected</span>
        </div>
        <img id="frame" alt="live stream">
    </div>
    <script>
        let ws = null;
        let lastURL = null;
        let frames = 0;

        const statusEl = document.getElementById('status');
        const frameEl = document.getElementById('frame');
        const connectBtn = document.getElementById('btn-connect');
        const disconnectBtn = document.getElementById('btn-disconnect');

        function setStatus(text) { statusEl.textContent = text; }

        function connect() {
            const quality = document.getElementById('quality').value;
            const scheme = location.protocol === 'https:' ? 'wss' : 'ws';
            ws = new WebSocket(scheme + '://' + location.host + '/websocket/' + quality);
            ws.binaryType = 'blob';
            frames = 0;
            setStatus('connecting (q=' + quality + ')...');

            ws.onopen = () => {
                setStatus('streaming at q=' + quality);
                connectBtn.disabled = true;
                disconnectBtn.disabled = false;
            };
            ws.onmessage = (event) => {
                const url = URL.createObjectURL(event.data);
                frameEl.src = url;
                if (lastURL) URL.revokeObjectURL(lastURL);
                lastURL = url;
                frames++;
            };
            ws.onclose = (event) => {
                setStatus('closed (code=' + event.code + ', frames=' + frames + ')');
                connectBtn.disabled = false;
                disconnectBtn.disabled = true;
                ws = null;
            };
            ws.onerror = () => setStatus('connection error');
        }

        connectBtn.addEventListener('click', connect);
        disconnectBtn.addEventListener('click', () => { if (ws) ws.close(); });
    </script>
</body>
</html>
`
