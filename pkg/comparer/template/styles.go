package template

import "html/template"

const indexStyles template.CSS = `
    body {font-family: monospace; font-size: 9pt;}
    .comments { margin-left: 20px; font-style: italic; }
    #summary_table {
        text-align:left;font-family:monospace;
        border: 1px solid #ccc; border-collapse: collapse
    }
    td {padding-left:5px;padding-right:5px;}
    #summary {margin-left: 16px; border:medium;text-align:center;}
    #footer_info {color:#333; font-size:8pt;}
    .diff {background-color:#ffd;}
    .added {background-color:#afa;}
    .deleted {background-color:#faa;}
    .table_header th {
        text-align:center;
        background-color:#f0f0f0;
        border-bottom: 1px solid #aaa;
        padding: 4px 4px 4px 4px;
    }
    li { display: inline; background-color:#eee; margin:.2em;padding:.2em;zoom:1; }
`

const cdiffStyles template.CSS = `
    .fromtitle {color:brown; font:bold 11pt;}
    .totitle {color:green; font:bold 11pt;}
    .same {color:black; font:9pt;}
    .change {color:blue; font:9pt;}
    .delete {color:brown; font:9pt;}
    .insert {color:green; font:9pt;}
`

const udiffStyles template.CSS = `
    .fromtitle {color:brown; font:bold 11pt;}
    .totitle {color:green; font:bold 11pt;}
    .head {color:blue; font:bold 9pt;}
    .same {color:black; font:9pt;}
    .old {color:brown; font:9pt;}
    .new {color:green; font:9pt;}
`

const sdiffStyles template.CSS = `
    body {font-family:monospace; font-size:9pt;}
    table.diff {font-family:monospace; border:medium;}
    .lnum {background-color:#e0e0e0; text-align:right; padding:0 .3em;}
    .skip {background-color:#c0c0c0;}
    .add {background-color:#aaffaa;}
    .chg {background-color:#ffff77;}
    .sub {background-color:#ffaaaa;}
    table.legend {border:1px solid #ccc; margin-top:1em;}
`
